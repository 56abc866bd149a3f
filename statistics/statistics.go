// Package statistics provides synchronized thread-safe counters
// tracking the outcome of field resolutions.
package statistics

import (
	"sync/atomic"
	"time"
)

// FieldSync counts resolutions of one schema field.
type FieldSync struct {
	resolved         int64
	degraded         int64
	failed           int64
	highestFetchTime int64
	averageFetchTime int64
}

func NewFieldSync() *FieldSync {
	return &FieldSync{}
}

// Outcome of a single resolution.
type Outcome int

const (
	// Resolved means the field produced a value.
	Resolved Outcome = iota
	// Degraded means an upstream failure was converted into the
	// field's null fallback.
	Degraded
	// Failed means the error propagated to the client.
	Failed
)

func (s *FieldSync) Update(fetchTime time.Duration, outcome Outcome) {
	var total int64
	switch outcome {
	case Degraded:
		atomic.AddInt64(&s.degraded, 1)
	case Failed:
		atomic.AddInt64(&s.failed, 1)
	default:
		atomic.AddInt64(&s.resolved, 1)
	}
	total = s.GetResolved() + s.GetDegraded() + s.GetFailed()

	// Highest fetch time
	if int64(fetchTime) > atomic.LoadInt64(&s.highestFetchTime) {
		atomic.StoreInt64(&s.highestFetchTime, int64(fetchTime))
	}

	// Average fetch time
	curAvgFetchTime := atomic.LoadInt64(&s.averageFetchTime)
	atomic.AddInt64(
		&s.averageFetchTime,
		(int64(fetchTime)-curAvgFetchTime)/total,
	)
}

func (s *FieldSync) GetResolved() int64 {
	return atomic.LoadInt64(&s.resolved)
}

func (s *FieldSync) GetDegraded() int64 {
	return atomic.LoadInt64(&s.degraded)
}

func (s *FieldSync) GetFailed() int64 {
	return atomic.LoadInt64(&s.failed)
}

func (s *FieldSync) GetHighestFetchTime() int64 {
	return atomic.LoadInt64(&s.highestFetchTime)
}

func (s *FieldSync) GetAverageFetchTime() int64 {
	return atomic.LoadInt64(&s.averageFetchTime)
}

// Registry holds one FieldSync per schema field. The field set is
// fixed at construction; lookups of unknown fields return nil.
type Registry struct {
	fields map[string]*FieldSync
}

func NewRegistry(fieldNames ...string) *Registry {
	fields := make(map[string]*FieldSync, len(fieldNames))
	for _, n := range fieldNames {
		fields[n] = NewFieldSync()
	}
	return &Registry{fields: fields}
}

func (r *Registry) Field(name string) *FieldSync {
	if r == nil {
		return nil
	}
	return r.fields[name]
}

// Each calls fn for every registered field.
func (r *Registry) Each(fn func(name string, s *FieldSync)) {
	for n, s := range r.fields {
		fn(n, s)
	}
}
