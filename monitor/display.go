package monitor

import (
	"fmt"

	"github.com/mklimuk/compass/magnetic"
)

// Display is the textual form of a Reading, one field per display line.
type Display struct {
	Address string
	X       string
	Y       string
	Z       string
	Status  string
}

func AddressLine(addr byte) string {
	return fmt.Sprintf("I2C Address of the compass MAG3110: 0x%02X", addr)
}

func Format(addr byte, r Reading) Display {
	if r.Err != nil {
		return Display{
			Address: AddressLine(addr),
			X:       "X Axis: Error",
			Y:       "Y Axis: Error",
			Z:       "Z Axis: Error",
			Status:  "Failed to read from compass: " + r.Err.Error(),
		}
	}
	return formatSample(addr, r.Sample)
}

func formatSample(addr byte, s magnetic.Sample) Display {
	return Display{
		Address: AddressLine(addr),
		X:       fmt.Sprintf("X Axis: %d", s.X),
		Y:       fmt.Sprintf("Y Axis: %d", s.Y),
		Z:       fmt.Sprintf("Z Axis: %d", s.Z),
		Status:  "Status: Running",
	}
}
