package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

type failingBus struct {
	err error
}

func (f *failingBus) String() string { return "failing" }
func (f *failingBus) Tx(addr uint16, w, r []byte) error { return f.err }
func (f *failingBus) SetSpeed(freq physic.Frequency) error { return f.err }
func (f *failingBus) Close() error { return nil }

func TestGenericBus_Transactions(t *testing.T) {
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x0E, W: []byte{0x10, 0x01}},
			{Addr: 0x0E, W: []byte{0x01}, R: []byte{0x10, 0x27, 0x00, 0x00, 0xF0, 0xD8}},
			{Addr: 0x0E, R: []byte{0xC4}},
		},
	}
	bus := NewBus(playback)
	ctx := context.Background()

	require.NoError(t, bus.SetSpeed(FastMode))
	require.NoError(t, bus.WriteToAddr(ctx, 0x0E, []byte{0x10, 0x01}))

	buf := make([]byte, 6)
	require.NoError(t, bus.TxAddr(ctx, 0x0E, []byte{0x01}, buf))
	assert.Equal(t, []byte{0x10, 0x27, 0x00, 0x00, 0xF0, 0xD8}, buf)

	who := make([]byte, 1)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x0E, who))
	assert.Equal(t, byte(0xC4), who[0])

	assert.NoError(t, bus.Release(ctx))
	assert.NoError(t, bus.Close())
}

func TestGenericBus_Errors(t *testing.T) {
	busErr := errors.New("remote I/O error")
	bus := NewBus(&failingBus{err: busErr})
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		expected string
	}{
		{"write", func() error { return bus.WriteToAddr(ctx, 0x0E, []byte{0x10}) }, "could not write to i2c bus e: remote I/O error"},
		{"read", func() error { return bus.ReadFromAddr(ctx, 0x0E, make([]byte, 1)) }, "could not read from i2c bus e: remote I/O error"},
		{"tx", func() error { return bus.TxAddr(ctx, 0x0E, []byte{0x01}, make([]byte, 6)) }, "could not transact on i2c bus e: remote I/O error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, busErr)
			assert.EqualError(t, err, tt.expected)
		})
	}
	assert.Equal(t, "failing", bus.String())
	assert.ErrorIs(t, bus.SetSpeed(FastMode), busErr)
}
