package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/compass/magnetic"
)

func TestSampler_PollPostsReadings(t *testing.T) {
	calls := 0
	reader := magnetic.NewMockMagnetometer(func(ctx context.Context) (magnetic.Sample, error) {
		calls++
		if calls == 2 {
			return magnetic.Sample{}, &magnetic.ReadError{Err: errors.New("nack")}
		}
		return magnetic.Sample{X: int16(calls), Y: 0, Z: -int16(calls)}, nil
	})
	s := NewSampler(reader, WithBuffer(3))
	ctx := context.Background()

	for range 3 {
		assert.True(t, s.poll(ctx))
	}

	r := <-s.Readings()
	assert.NoError(t, r.Err)
	assert.Equal(t, magnetic.Sample{X: 1, Z: -1}, r.Sample)
	assert.False(t, r.Time.IsZero())

	r = <-s.Readings()
	var readErr *magnetic.ReadError
	assert.True(t, errors.As(r.Err, &readErr))

	r = <-s.Readings()
	assert.NoError(t, r.Err)
	assert.Equal(t, magnetic.Sample{X: 3, Z: -3}, r.Sample)
}

func TestSampler_SkipsTickWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var calls atomic.Int32
	reader := magnetic.NewMockMagnetometer(func(ctx context.Context) (magnetic.Sample, error) {
		calls.Add(1)
		close(started)
		<-unblock
		return magnetic.Sample{X: 7}, nil
	})
	s := NewSampler(reader)
	ctx := context.Background()

	done := make(chan bool)
	go func() {
		done <- s.poll(ctx)
	}()
	<-started

	assert.False(t, s.poll(ctx))
	assert.Equal(t, int64(1), s.Skipped())

	close(unblock)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, magnetic.Sample{X: 7}, (<-s.Readings()).Sample)
}

func TestSampler_RunUntilCancelled(t *testing.T) {
	var n atomic.Int32
	reader := magnetic.NewMockMagnetometer(func(ctx context.Context) (magnetic.Sample, error) {
		return magnetic.Sample{X: int16(n.Add(1))}, nil
	})
	s := NewSampler(reader, WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()

	var got []int16
	for r := range s.Readings() {
		require.NoError(t, r.Err)
		got = append(got, r.Sample.X)
		if len(got) == 3 {
			cancel()
			break
		}
	}
	assert.Equal(t, []int16{1, 2, 3}, got)
	assert.ErrorIs(t, <-runErr, context.Canceled)

	// drain whatever was posted before the loop noticed the cancellation
	for range s.Readings() {
	}
}

func TestSampler_KeepsPollingAfterErrors(t *testing.T) {
	reader := magnetic.NewMockMagnetometer(func(ctx context.Context) (magnetic.Sample, error) {
		return magnetic.Sample{}, magnetic.ErrClosed
	})
	s := NewSampler(reader, WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = s.Run(ctx)
	}()
	for range 3 {
		r := <-s.Readings()
		assert.ErrorIs(t, r.Err, magnetic.ErrClosed)
	}
}

func TestSampler_RunCountsSkippedTicks(t *testing.T) {
	reader := magnetic.NewMockMagnetometer(func(ctx context.Context) (magnetic.Sample, error) {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
		}
		return magnetic.Sample{X: 1}, nil
	})
	s := NewSampler(reader, WithInterval(2*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()

	for range 3 {
		r := <-s.Readings()
		require.NoError(t, r.Err)
	}
	cancel()
	for range s.Readings() {
	}
	assert.ErrorIs(t, <-runErr, context.Canceled)
	assert.Positive(t, s.Skipped())
}

func TestSampler_PollAfterRunReturns(t *testing.T) {
	reader := magnetic.NewMockMagnetometer(func(ctx context.Context) (magnetic.Sample, error) {
		return magnetic.Sample{X: 1}, nil
	})
	s := NewSampler(reader)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	for range s.Readings() {
	}

	assert.NotPanics(t, func() {
		assert.False(t, s.poll(context.Background()))
	})
}
