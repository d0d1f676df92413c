package tasks

import (
	"fmt"
	"runtime/debug"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Group is an errgroup whose goroutines report panics through HandleCrit
// instead of crashing the process.
type Group struct {
	errGroup   errgroup.Group
	HandleCrit func(err error)
}

func (t *Group) Go(fn func() error) {
	t.errGroup.Go(func() error {
		defer func() {
			if err := recover(); err != nil {
				log.Error("task panicked", "panic", err, "stack", string(debug.Stack()))
				t.HandleCrit(fmt.Errorf("panic: %v", err))
			}
		}()
		return fn()
	})
}

// Wait blocks until every task returned and reports the first error.
func (t *Group) Wait() error {
	return t.errGroup.Wait()
}
