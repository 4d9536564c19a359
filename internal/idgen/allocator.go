// Package idgen issues 64-bit, time-ordered identifiers.
//
// Layout, most to least significant bit:
//
//	| 42 bits ms since epoch | 10 bits worker id | 12 bits sequence |
//
// Ids issued by one Allocator strictly increase for the lifetime of the
// process. Callers hold a reference to a single configured Allocator; there
// is no package-level state.
package idgen

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	workerBits   = 10
	sequenceBits = 12

	MaxWorkerID = 1<<workerBits - 1   // 1023
	maxSequence = 1<<sequenceBits - 1 // 4095

	workerShift    = sequenceBits
	timestampShift = sequenceBits + workerBits
)

// DefaultEpoch is 2023-01-01T00:00:00Z.
var DefaultEpoch = time.UnixMilli(1672531200000).UTC()

var (
	ErrNotConfigured     = errors.New("id allocator is not configured")
	ErrAlreadyConfigured = errors.New("id allocator is already configured")
	ErrClockBeforeEpoch  = errors.New("clock is behind the id epoch")
)

// ClockRegressionError is the panic value raised by Next when the wall
// clock moves behind the last issued timestamp.
type ClockRegressionError struct {
	Last, Now int64 // ms since epoch
}

func (e ClockRegressionError) Error() string {
	return fmt.Sprintf("clock moved backwards: refusing to generate id for %dms", e.Last-e.Now)
}

type Option func(*Allocator)

// WithEpoch overrides DefaultEpoch.
func WithEpoch(epoch time.Time) Option {
	return func(a *Allocator) { a.epoch = epoch }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// Allocator is a snowflake generator. The zero value is unconfigured.
type Allocator struct {
	mu         sync.Mutex
	configured bool
	workerID   int64
	epoch      time.Time
	now        func() time.Time

	lastElapsed int64
	sequence    int64
}

// NewAllocator returns a configured allocator.
func NewAllocator(workerID int64, opts ...Option) (*Allocator, error) {
	a := &Allocator{}
	if err := a.Configure(workerID, opts...); err != nil {
		return nil, err
	}
	return a, nil
}

// Configure sets the worker id and options. It may succeed only once.
func (a *Allocator) Configure(workerID int64, opts ...Option) error {
	if workerID < 0 || workerID > MaxWorkerID {
		return fmt.Errorf("worker id must be between 0 and %d, got %d", MaxWorkerID, workerID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.configured {
		return ErrAlreadyConfigured
	}

	a.workerID = workerID
	a.epoch = DefaultEpoch
	a.now = time.Now
	for _, opt := range opts {
		opt(a)
	}
	if now := a.now(); now.Before(a.epoch) {
		return fmt.Errorf("%w: epoch %s is after now %s", ErrClockBeforeEpoch,
			a.epoch.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	}
	a.lastElapsed = -1
	a.configured = true
	return nil
}

// WorkerID returns the configured worker id.
func (a *Allocator) WorkerID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workerID
}

// Next returns the next id. It panics with ClockRegressionError if the
// clock goes backwards: a colliding id is worse than a failed call. A clock
// behind the epoch yields ErrClockBeforeEpoch and no id.
func (a *Allocator) Next() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.configured {
		return 0, ErrNotConfigured
	}

	elapsed := a.elapsed()
	if elapsed < 0 {
		return 0, ErrClockBeforeEpoch
	}

	switch {
	case elapsed < a.lastElapsed:
		panic(ClockRegressionError{Last: a.lastElapsed, Now: elapsed})
	case elapsed == a.lastElapsed:
		a.sequence = (a.sequence + 1) & maxSequence
		if a.sequence == 0 {
			// sequence exhausted for this millisecond
			for elapsed <= a.lastElapsed {
				elapsed = a.elapsed()
			}
		}
	default:
		a.sequence = 0
	}

	a.lastElapsed = elapsed

	return uint64(elapsed)<<timestampShift |
		uint64(a.workerID)<<workerShift |
		uint64(a.sequence), nil
}

func (a *Allocator) elapsed() int64 {
	return a.now().Sub(a.epoch).Milliseconds()
}

// Parts is the decomposition of an id.
type Parts struct {
	Elapsed  int64     // ms since epoch
	Time     time.Time // epoch + Elapsed
	WorkerID int64
	Sequence int64
}

// Decompose splits id into its fields using the allocator's epoch.
func (a *Allocator) Decompose(id uint64) Parts {
	a.mu.Lock()
	epoch := a.epoch
	a.mu.Unlock()
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}

	elapsed := int64(id >> timestampShift)
	return Parts{
		Elapsed:  elapsed,
		Time:     epoch.Add(time.Duration(elapsed) * time.Millisecond),
		WorkerID: int64(id>>workerShift) & MaxWorkerID,
		Sequence: int64(id) & maxSequence,
	}
}

// Format renders an id as the decimal string used on the wire.
func Format(id uint64) string { return strconv.FormatUint(id, 10) }

// Parse reads a decimal id.
func Parse(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
