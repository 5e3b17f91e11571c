package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/compass"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// MCP2221 HID command codes
const (
	cmdStatusSetParams    byte = 0x10
	cmdGetI2CData         byte = 0x40
	cmdI2CWrite           byte = 0x90
	cmdI2CRead            byte = 0x91
	cmdI2CReadRepeatStart byte = 0x93
	cmdI2CWriteNoStop     byte = 0x94
)

const (
	// internal clock used to derive the I2C speed divider
	sysClock        = 12_000_000
	setSpeedCommand = 0x20
	cancelTransfer  = 0x10
	getDataError    = 0x41
	// max payload of a single I2C read/write frame
	maxTransferLen = 60
)

var ErrCommandFailed = errors.New("command failed")

type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

var _ compass.I2CBus = &MCP2221{}

func NewMCP2221() *MCP2221 {
	return &MCP2221{
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 50 * time.Millisecond,
	}
}

// Detect lists the MCP2221 bridges attached to the host.
func Detect() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

// Init checks that exactly one bridge is attached.
func (d *MCP2221) Init() error {
	devs := Detect()
	switch {
	case len(devs) == 0:
		return fmt.Errorf("MCP2221 device not found: %w", compass.ErrNoController)
	case len(devs) > 1:
		return fmt.Errorf("ambiguous device identification: %d MCP2221 devices found", len(devs))
	}
	return nil
}

func (d *MCP2221) String() string {
	return fmt.Sprintf("mcp2221-%04x:%04x", VendorID, ProductID)
}

// SetSpeed programs the I2C clock of the bridge, in Hz.
func (d *MCP2221) SetSpeed(ctx context.Context, hz int) error {
	div, err := speedDivider(hz)
	if err != nil {
		return err
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[3] = setSpeedCommand
	d.request[4] = div
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	// the bridge echoes 0x20 when the new divider was accepted
	if d.response[3] != setSpeedCommand {
		return fmt.Errorf("speed %d Hz rejected: %w", hz, compass.ErrBusBusy)
	}
	return nil
}

func speedDivider(hz int) (byte, error) {
	if hz <= 0 {
		return 0, fmt.Errorf("invalid i2c speed %d", hz)
	}
	div := sysClock/hz - 3
	if div < 0 || div > 0xFF {
		return 0, fmt.Errorf("i2c speed %d Hz out of range", hz)
	}
	return byte(div), nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.write(ctx, cmdI2CWrite, address, buffer); err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.read(ctx, cmdI2CRead, address, buffer); err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	return nil
}

// TxAddr writes w without a STOP condition and reads r with a repeated start.
func (d *MCP2221) TxAddr(ctx context.Context, address byte, w, r []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.write(ctx, cmdI2CWriteNoStop, address, w); err != nil {
		return fmt.Errorf("register select on %x failed: %w", address, err)
	}
	if err := d.read(ctx, cmdI2CReadRepeatStart, address, r); err != nil {
		return fmt.Errorf("repeated start read from %x failed: %w", address, err)
	}
	return nil
}

func (d *MCP2221) write(ctx context.Context, cmd, address byte, buffer []byte) error {
	d.resetBuffers()
	if err := encodeWrite(d.request, cmd, address, buffer); err != nil {
		return err
	}
	if err := d.send(ctx); err != nil {
		return err
	}
	if d.response[1] != 0x00 {
		slog.Debug("adapter busy", "cmd", fmt.Sprintf("%#x", cmd))
		return compass.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) read(ctx context.Context, cmd, address byte, buffer []byte) error {
	d.resetBuffers()
	if err := encodeRead(d.request, cmd, address, len(buffer)); err != nil {
		return err
	}
	if err := d.send(ctx); err != nil {
		return err
	}
	if d.response[1] != 0x00 {
		return compass.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	return decodeReadData(d.response, buffer)
}

func encodeWrite(req []byte, cmd, address byte, buffer []byte) error {
	if len(buffer) > maxTransferLen {
		return fmt.Errorf("write of %d bytes exceeds frame size", len(buffer))
	}
	req[0] = cmd
	binary.LittleEndian.PutUint16(req[1:3], uint16(len(buffer)))
	req[3] = address << 1
	copy(req[4:], buffer)
	return nil
}

func encodeRead(req []byte, cmd, address byte, n int) error {
	if n > maxTransferLen {
		return fmt.Errorf("read of %d bytes exceeds frame size", n)
	}
	req[0] = cmd
	binary.LittleEndian.PutUint16(req[1:3], uint16(n))
	req[3] = address<<1 + 1
	return nil
}

func decodeReadData(resp []byte, buffer []byte) error {
	if resp[1] == getDataError {
		return fmt.Errorf("%w: error reading the I2C slave data from the I2C engine", ErrCommandFailed)
	}
	if resp[3] == 127 || int(resp[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), resp[3])
	}
	copy(buffer, resp[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

// ReleaseBus cancels the current transfer and frees the bridge's I2C engine.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	devs := Detect()
	if len(devs) > 1 {
		return fmt.Errorf("ambiguous device identification")
	}
	if len(devs) == 0 {
		return fmt.Errorf("MCP2221 device not found: %w", compass.ErrNoController)
	}
	dev, err := devs[0].Open()
	if err != nil {
		return fmt.Errorf("error opening device: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("could not close hid device", "error", err)
		}
	}()
	verbose := compass.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "frame", hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	timer := time.NewTimer(d.responseWait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "frame", hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
