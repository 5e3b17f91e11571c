package magnetic

import (
	"context"
	"fmt"
	"testing"
)

func TestMockMagnetometer_DynamicBehavior(t *testing.T) {
	calls := 0
	sensor := NewMockMagnetometer(func(ctx context.Context) (Sample, error) {
		calls++
		if calls == 2 {
			return Sample{}, fmt.Errorf("sensor malfunction")
		}
		return Sample{X: int16(calls), Y: -int16(calls), Z: 0}, nil
	})
	ctx := context.Background()

	s, err := sensor.Read(ctx)
	if err != nil {
		t.Fatalf("first read: unexpected error: %v", err)
	}
	if s != (Sample{X: 1, Y: -1}) {
		t.Errorf("first read: unexpected sample %+v", s)
	}

	_, err = sensor.Read(ctx)
	if err == nil || err.Error() != "sensor malfunction" {
		t.Errorf("second read: expected sensor malfunction, got %v", err)
	}

	s, err = sensor.Read(ctx)
	if err != nil {
		t.Fatalf("third read: unexpected error: %v", err)
	}
	if s != (Sample{X: 3, Y: -3}) {
		t.Errorf("third read: unexpected sample %+v", s)
	}
}
