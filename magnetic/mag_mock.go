package magnetic

import (
	"context"
)

// SampleBehaviorFunc defines the function signature for magnetometer behavior.
type SampleBehaviorFunc func(ctx context.Context) (Sample, error)

// MockMagnetometer produces samples from a behavior function without any hardware.
//
// Example usage:
//
//	sensor := NewMockMagnetometer(func(ctx context.Context) (Sample, error) {
//		return Sample{X: 120, Y: -40, Z: 900}, nil
//	})
type MockMagnetometer struct {
	behavior SampleBehaviorFunc
}

func NewMockMagnetometer(behavior SampleBehaviorFunc) *MockMagnetometer {
	return &MockMagnetometer{behavior: behavior}
}

func (m *MockMagnetometer) Read(ctx context.Context) (Sample, error) {
	return m.behavior(ctx)
}
