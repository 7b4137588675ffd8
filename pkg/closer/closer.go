// Package closer collects resource shutdown functions and runs them in LIFO
// order on application exit.
package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Func is the signature of a resource shutdown function.
type Func func(ctx context.Context) error

// Closer provides thread-safe registration and closing of resources.
type Closer struct {
	funcs []Func
	mu    sync.Mutex
	once  sync.Once
}

func New() *Closer {
	return &Closer{}
}

// Add registers a shutdown function.
func (c *Closer) Add(f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, f)
}

// Close runs all registered functions in LIFO order, stopping early if the
// context is cancelled. Individual errors are collected, not fatal.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		funcs := c.funcs
		c.mu.Unlock()

		var errs []string
		for i := len(funcs) - 1; i >= 0; i-- {
			done := make(chan error, 1)
			go func(f Func) {
				done <- f(ctx)
			}(funcs[i])

			select {
			case ferr := <-done:
				if ferr != nil {
					errs = append(errs, fmt.Sprintf("[!] %v", ferr))
				}
			case <-ctx.Done():
				errs = append(errs, fmt.Sprintf("shutdown interrupted with %d/%d funcs remaining", i+1, len(funcs)))
				err = fmt.Errorf("%s", strings.Join(errs, "\n"))
				return
			}
		}

		if len(errs) > 0 {
			err = fmt.Errorf("shutdown finished with error(s):\n%s", strings.Join(errs, "\n"))
		}
	})

	return err
}
