package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/compass"
)

func TestMCP2221_EncodeWrite(t *testing.T) {
	req := make([]byte, 64)
	require.NoError(t, encodeWrite(req, cmdI2CWrite, 0x0E, []byte{0x10, 0x01}))
	assert.Equal(t, []byte{0x90, 0x02, 0x00, 0x1C, 0x10, 0x01}, req[:6])

	req = make([]byte, 64)
	require.NoError(t, encodeWrite(req, cmdI2CWriteNoStop, 0x0E, []byte{0x01}))
	assert.Equal(t, []byte{0x94, 0x01, 0x00, 0x1C, 0x01}, req[:5])

	assert.Error(t, encodeWrite(make([]byte, 64), cmdI2CWrite, 0x0E, make([]byte, 61)))
}

func TestMCP2221_EncodeRead(t *testing.T) {
	req := make([]byte, 64)
	require.NoError(t, encodeRead(req, cmdI2CReadRepeatStart, 0x0E, 6))
	assert.Equal(t, []byte{0x93, 0x06, 0x00, 0x1D}, req[:4])

	assert.Error(t, encodeRead(make([]byte, 64), cmdI2CRead, 0x0E, 100))
}

func TestMCP2221_DecodeReadData(t *testing.T) {
	tests := []struct {
		name     string
		resp     []byte
		expected []byte
		err      string
	}{
		{
			name:     "ok",
			resp:     []byte{0x40, 0x00, 0x00, 0x06, 0x10, 0x27, 0x00, 0x00, 0xF0, 0xD8},
			expected: []byte{0x10, 0x27, 0x00, 0x00, 0xF0, 0xD8},
		},
		{
			name: "engine error",
			resp: []byte{0x40, 0x41, 0x00, 0x06},
			err:  "command failed: error reading the I2C slave data from the I2C engine",
		},
		{
			name: "short data",
			resp: []byte{0x40, 0x00, 0x00, 0x04},
			err:  "invalid data size byte; expected 6, got 4",
		},
		{
			name: "no data",
			resp: []byte{0x40, 0x00, 0x00, 127},
			err:  "invalid data size byte; expected 6, got 127",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := make([]byte, 64)
			copy(resp, tt.resp)
			buf := make([]byte, 6)
			err := decodeReadData(resp, buf)
			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf)
		})
	}
}

func TestMCP2221_SpeedDivider(t *testing.T) {
	div, err := speedDivider(400_000)
	require.NoError(t, err)
	assert.Equal(t, byte(27), div)

	div, err = speedDivider(100_000)
	require.NoError(t, err)
	assert.Equal(t, byte(117), div)

	_, err = speedDivider(0)
	assert.Error(t, err)
	_, err = speedDivider(10_000)
	assert.Error(t, err)
}

func TestMCP2221_BufferToStatus(t *testing.T) {
	buf := make([]byte, 64)
	buf[9], buf[10] = 0x06, 0x00
	buf[11], buf[12] = 0x02, 0x00
	buf[13] = 3
	buf[14] = 27
	buf[15] = 5
	buf[16], buf[17] = 0x1C, 0x00
	buf[25] = 1

	status := bufferToStatus(buf)
	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   3,
		I2CSpeedDivider:        27,
		I2CTimeout:             5,
		CurrentAddress:         "1c00",
		LastWriteRequestedSize: 6,
		LastWriteSentSize:      2,
		ReadPending:            1,
	}, status)
}

func TestMCP2221_NoBridge(t *testing.T) {
	if len(Detect()) > 0 {
		t.Skip("MCP2221 bridge attached")
	}
	a := NewMCP2221()
	ctx := context.Background()

	assert.ErrorIs(t, a.Init(), compass.ErrNoController)
	_, err := a.Status(ctx)
	assert.ErrorIs(t, err, compass.ErrNoController)
	assert.ErrorIs(t, a.SetSpeed(ctx, 400_000), compass.ErrNoController)
	assert.ErrorIs(t, a.TxAddr(ctx, 0x0E, []byte{0x01}, make([]byte, 6)), compass.ErrNoController)
}
