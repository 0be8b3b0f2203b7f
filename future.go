package reqcache

import (
	"context"

	"github.com/google/uuid"
)

// ErrNotReady is returned by Future.Result before settlement.
const ErrNotReady = SentinelError("result is not ready")

// Source tells how a request was served.
type Source int

// Sources of a result.
const (
	SourceCache Source = iota
	SourceOrigin
	SourceJoin
	SourceBypass
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceOrigin:
		return "origin"
	case SourceJoin:
		return "join"
	case SourceBypass:
		return "bypass"
	}

	return "unknown"
}

// round is a single upstream call shared by its originator and joiners.
//
// Result slot is written once before done is closed.
type round struct {
	id   string
	done chan struct{}
	val  interface{}
	err  error
}

func newRound() *round {
	return &round{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

func settledRound(val interface{}, err error) *round {
	r := &round{
		done: make(chan struct{}),
		val:  val,
		err:  err,
	}
	close(r.done)

	return r
}

// Future delivers the result of a request.
//
// Every Future of a round receives the same value or the same failure.
type Future struct {
	r      *round
	source Source
}

// Source returns how request was served.
func (f *Future) Source() Source {
	return f.source
}

// Round returns id of upstream round, empty for cached response.
func (f *Future) Round() string {
	return f.r.id
}

// Done is closed when result is available.
func (f *Future) Done() <-chan struct{} {
	return f.r.done
}

// Result returns settled result without blocking, ErrNotReady before settlement.
func (f *Future) Result() (interface{}, error) {
	select {
	case <-f.r.done:
		return f.r.val, f.r.err
	default:
		return nil, ErrNotReady
	}
}

// Wait blocks until result is available or ctx is done.
//
// Abandoning wait by ctx does not affect upstream call and other callers.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.r.done:
		return f.r.val, f.r.err
	default:
	}

	select {
	case <-f.r.done:
		return f.r.val, f.r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
