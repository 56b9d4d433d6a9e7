package syncer

import "sync"

// Operation tracks one remote fetch. Done closes when the remote call has
// finished and its result (if any) is in the cache. Settled closes on Done
// or when the loading ceiling elapses, whichever comes first.
type Operation struct {
	done       chan struct{}
	settled    chan struct{}
	settleOnce sync.Once
	err        error
	skipped    bool
}

func newOperation() *Operation {
	return &Operation{
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
}

// completedOperation is returned when the cache is fresh and no fetch is needed.
func completedOperation() *Operation {
	op := newOperation()
	op.skipped = true
	close(op.done)
	op.settle()
	return op
}

// Done is closed when the fetch has finished.
func (o *Operation) Done() <-chan struct{} { return o.done }

// Settled is closed when the caller may stop waiting.
func (o *Operation) Settled() <-chan struct{} { return o.settled }

// Err returns the fetch error. Only meaningful after Done is closed.
func (o *Operation) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Skipped reports whether the fetch was skipped because the cache was fresh.
func (o *Operation) Skipped() bool { return o.skipped }

func (o *Operation) settle() bool {
	settled := false
	o.settleOnce.Do(func() {
		close(o.settled)
		settled = true
	})
	return settled
}
