package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Catch runs fn, converting a panic into a returned error. A non-nil error
// from fn wins over a recovered panic.
func Catch(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if err != nil {
		return err
	}
	return catcher.Recovered().AsError()
}

// SafeContext wraps a context-taking function so that panics surface as
// errors instead of crashing the process. Intended for goroutines managed
// by a worker pool.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Catch(func() error {
			return fn(ctx)
		})
	}
}
