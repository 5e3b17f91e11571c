package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/compass/magnetic"
)

const DefaultInterval = 300 * time.Millisecond

// Reader is satisfied by magnetic.MAG3110 and its mock.
type Reader interface {
	Read(ctx context.Context) (magnetic.Sample, error)
}

// Reading is the outcome of a single poll.
type Reading struct {
	Sample magnetic.Sample
	Err    error
	Time   time.Time
}

type SamplerOpts struct {
	Interval time.Duration
	Buffer   int
}

type SamplerOpt func(*SamplerOpts)

func WithInterval(interval time.Duration) SamplerOpt {
	return func(o *SamplerOpts) {
		o.Interval = interval
	}
}

func WithBuffer(n int) SamplerOpt {
	return func(o *SamplerOpts) {
		o.Buffer = n
	}
}

// Sampler polls a Reader on a fixed interval and posts each Reading to a
// channel consumed by the presentation side.
type Sampler struct {
	reader   Reader
	config   SamplerOpts
	out      chan Reading
	inFlight atomic.Bool
	skipped  atomic.Int64

	mx     sync.RWMutex
	closed bool
}

func NewSampler(reader Reader, opts ...SamplerOpt) *Sampler {
	config := SamplerOpts{
		Interval: DefaultInterval,
		Buffer:   1,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Sampler{
		reader: reader,
		config: config,
		out:    make(chan Reading, config.Buffer),
	}
}

// Readings is closed when Run returns.
func (s *Sampler) Readings() <-chan Reading {
	return s.out
}

// Skipped returns the number of ticks dropped because a poll was still running.
func (s *Sampler) Skipped() int64 {
	return s.skipped.Load()
}

// Run polls immediately and then on every tick until ctx is cancelled. Each
// tick starts its own poll; a tick arriving while the previous poll is still
// reading or waiting for the consumer is skipped.
func (s *Sampler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		s.mx.Lock()
		s.closed = true
		close(s.out)
		s.mx.Unlock()
	}()
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.poll(ctx)
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll runs a single read cycle. It returns false without touching the reader
// when another cycle is still in flight or the sampler has been stopped.
func (s *Sampler) poll(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		slog.Debug("previous poll still in flight, skipping tick")
		return false
	}
	defer s.inFlight.Store(false)

	s.mx.RLock()
	defer s.mx.RUnlock()
	if s.closed {
		return false
	}

	sample, err := s.reader.Read(ctx)
	r := Reading{Sample: sample, Err: err, Time: time.Now()}
	if err != nil {
		slog.Warn("compass read failed", "error", err)
	}
	select {
	case s.out <- r:
	case <-ctx.Done():
	}
	return true
}
