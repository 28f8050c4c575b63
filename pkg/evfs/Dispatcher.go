// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/log"
)

func newPool(workers int, idleTimeout time.Duration, logger log.Logger) (*ants.Pool, error) {
	pool, err := ants.NewPool(
		workers,
		ants.WithExpiryDuration(idleTimeout),
		ants.WithNonblocking(false),
		ants.WithPanicHandler(func(v interface{}) {
			_ = logger.Warn("Worker panicked", map[string]interface{}{
				"panic": fmt.Sprint(v),
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating worker pool: %w", err)
	}
	return pool, nil
}

// dispatch hands queued requests to the worker pool until the queue is closed.
// Submit blocks while every worker is busy.
func (e *Evfs) dispatch() {
	defer close(e.dispatched)
	for r := range e.queue {
		r := r
		e.running.Add(1)
		err := e.pool.Submit(func() {
			defer e.running.Done()
			defer r.abort()
			e.engine.Run(r)
		})
		if err != nil {
			e.running.Done()
			err = driver.NewError(driver.KindClosed, r.Path, fmt.Errorf("error submitting request: %w", err))
			_ = r.sender.finish(driver.NewErrorMessage(err))
		}
	}
}
