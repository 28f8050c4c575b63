// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package evfs provides a virtual file system that mounts local directories, archives,
// and remote locations under one namespace and loads whole files from them asynchronously.
package evfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/deptofdefense/evfs/pkg/cpiofs"
	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/httpfs"
	"github.com/deptofdefense/evfs/pkg/lfs"
	"github.com/deptofdefense/evfs/pkg/log"
	"github.com/deptofdefense/evfs/pkg/mount"
	"github.com/deptofdefense/evfs/pkg/tarfs"
	"github.com/deptofdefense/evfs/pkg/zipfs"
)

// Evfs is a virtual file system.  It is safe for concurrent use.
type Evfs struct {
	config  *Config
	logger  log.Logger
	engine  *Engine
	mounts  *mount.Table
	mutex   sync.RWMutex
	drivers []driver.Driver

	queueMutex sync.RWMutex
	closed     bool
	queue      chan *Request
	pool       *ants.Pool
	running    sync.WaitGroup
	dispatched chan struct{}
}

// DefaultDrivers returns the built-in driver templates: local directories, zip, tar, and cpio
// archives on the host file system, and files served over HTTP or HTTPS.
func DefaultDrivers(options driver.ReadOptions) []driver.Driver {
	base := afero.NewOsFs()
	return []driver.Driver{
		lfs.New(base, options),
		zipfs.New(base, options),
		tarfs.New(base, options),
		cpiofs.New(base, options),
		httpfs.New(http.DefaultClient, options),
	}
}

// InstallDriver appends a driver template to the registry.
// Loads that are already queued do not see it.
func (e *Evfs) InstallDriver(d driver.Driver) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.drivers = append(e.drivers, d)
}

// Drivers returns a copy of the driver registry.
func (e *Evfs) Drivers() []driver.Driver {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	drivers := make([]driver.Driver, len(e.drivers))
	copy(drivers, e.drivers)
	return drivers
}

// Mount makes source available below target, using the first driver in the registry that accepts it.
// Mounts with the same target overlay earlier ones.
// When no driver accepts a local source, the NoDriverSupport error wraps the first I/O failure seen while probing it.
func (e *Evfs) Mount(target string, source string) error {
	target, err := mount.CleanTarget(target)
	if err != nil {
		return err
	}
	var cause error
	for _, t := range e.Drivers() {
		if err := t.CanMount(target, source); err != nil {
			if cause == nil && errors.Is(err, driver.ErrFile) && !mount.IsURL(source) {
				cause = err
			}
			continue
		}
		canonical, err := mount.Canonicalize(source)
		if err != nil {
			return err
		}
		d, err := t.NewFromSource(canonical)
		if err != nil {
			return fmt.Errorf("error mounting %q at %q: %w", canonical, target, err)
		}
		e.mounts.Add(mount.Mount{Target: target, Source: canonical, Driver: d})
		_ = e.logger.Log("Mounted", map[string]interface{}{
			"target": target,
			"source": canonical,
			"driver": d.Name(),
		})
		return nil
	}
	return driver.NewError(driver.KindNoDriverSupport, source, cause)
}

// Mounts returns a copy of the mount table in registration order.
func (e *Evfs) Mounts() []mount.Mount {
	return e.mounts.Snapshot()
}

// LoadFile queues a load of the file at the virtual path p.
// It never fails synchronously, errors are delivered through the handle.
func (e *Evfs) LoadFile(p string) *Handle {
	return e.LoadFileContext(context.Background(), p)
}

// LoadFileContext is like LoadFile, but passes ctx to the drivers.
func (e *Evfs) LoadFileContext(ctx context.Context, p string) *Handle {
	r, h := NewRequest(ctx, p, e.mounts.Snapshot(), e.Drivers(), e.config.ResultBuffer)

	e.queueMutex.RLock()
	defer e.queueMutex.RUnlock()
	if e.closed {
		_ = r.sender.finish(driver.NewErrorMessage(driver.NewError(driver.KindClosed, p, nil)))
		return h
	}
	e.queue <- r
	return h
}

// Close stops accepting loads, waits for queued and running loads to finish, and stops the workers.
func (e *Evfs) Close() error {
	e.queueMutex.Lock()
	if e.closed {
		e.queueMutex.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.queueMutex.Unlock()

	<-e.dispatched
	e.running.Wait()
	e.pool.Release()
	_ = e.logger.Log("Closed", nil)
	return nil
}

// New returns a new evfs and starts its workers.  A nil config uses DefaultConfig.
func New(config *Config) (*Evfs, error) {
	if config == nil {
		config = DefaultConfig()
	}
	c := config.normalize()

	e := &Evfs{
		config: c,
		logger: c.Logger,
		engine: &Engine{
			MaxDepth: c.MaxDepth,
			Logger:   c.Logger,
		},
		mounts:     mount.NewTable(),
		drivers:    c.Drivers,
		queue:      make(chan *Request, c.QueueSize),
		dispatched: make(chan struct{}),
	}

	pool, err := newPool(c.Workers, c.IdleTimeout, c.Logger)
	if err != nil {
		return nil, err
	}
	e.pool = pool

	go e.dispatch()

	return e, nil
}
