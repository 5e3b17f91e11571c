package compass

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

var ErrNoController = fmt.Errorf("no I2C controllers were found on the system")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// AddressableTransactor performs a combined write-then-read against a single
// slave address. Implementations must not issue a STOP between the write and
// the read when the hardware supports a repeated start.
type AddressableTransactor interface {
	TxAddr(ctx context.Context, address byte, w, r []byte) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
	AddressableTransactor
}
