package crawl

import "sync/atomic"

// FirstError keeps the first error recorded into it and discards the rest.
// It is safe for concurrent use.
type FirstError struct {
	err atomic.Pointer[error]
}

// Set records err if no error has been recorded yet. It reports whether err
// was kept.
func (f *FirstError) Set(err error) bool {
	if err == nil {
		return false
	}
	return f.err.CompareAndSwap(nil, &err)
}

// Err returns the recorded error, or nil.
func (f *FirstError) Err() error {
	if p := f.err.Load(); p != nil {
		return *p
	}
	return nil
}
