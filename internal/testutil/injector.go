package testutil

import "sync"

// ErrorInjector provides systematic error injection for testing
type ErrorInjector struct {
	mu     sync.Mutex
	errors map[string]injected
	counts map[string]int
}

type injected struct {
	after int
	err   error
}

// NewErrorInjector creates a new error injector
func NewErrorInjector() *ErrorInjector {
	return &ErrorInjector{
		errors: make(map[string]injected),
		counts: make(map[string]int),
	}
}

// InjectError configures an error to be returned for every call on key
func (e *ErrorInjector) InjectError(key string, err error) {
	e.InjectErrorAfterN(key, 0, err)
}

// InjectErrorAfterN configures an error to be returned after N successful calls
func (e *ErrorInjector) InjectErrorAfterN(key string, n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors[key] = injected{after: n, err: err}
}

// ShouldError counts a call on key and returns the injected error, if due
func (e *ErrorInjector) ShouldError(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counts[key]++

	if inj, ok := e.errors[key]; ok && e.counts[key] > inj.after {
		return inj.err
	}

	return nil
}

// GetCount returns the number of times a key was checked
func (e *ErrorInjector) GetCount(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[key]
}

// Reset clears all error configurations and counts
func (e *ErrorInjector) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = make(map[string]injected)
	e.counts = make(map[string]int)
}
