// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"time"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/log"
)

const (
	DefaultWorkers      = 2
	DefaultMaxDepth     = 100
	DefaultQueueSize    = 1024
	DefaultResultBuffer = 64
	DefaultIdleTimeout  = time.Second
)

// Config configures an evfs.  Zero values are replaced by defaults.
type Config struct {
	// Workers is the number of requests loaded concurrently.
	Workers int
	// MaxDepth is the maximum number of nested containers walked by a single load.
	MaxDepth int
	// QueueSize is the number of requests that can wait for a worker before LoadFile blocks.
	QueueSize int
	// ResultBuffer is the capacity of the result channel of each request.  It is at least 2.
	ResultBuffer int
	// Drivers is the initial driver registry.  If nil, the default drivers are installed.
	Drivers []driver.Driver
	// ReadOptions configures the default drivers.
	ReadOptions driver.ReadOptions
	// IdleTimeout is how long an idle worker is kept alive.
	IdleTimeout time.Duration
	Logger      log.Logger
}

func DefaultConfig() *Config {
	return &Config{
		Workers:      DefaultWorkers,
		MaxDepth:     DefaultMaxDepth,
		QueueSize:    DefaultQueueSize,
		ResultBuffer: DefaultResultBuffer,
		ReadOptions:  driver.DefaultReadOptions(),
		IdleTimeout:  DefaultIdleTimeout,
		Logger:       log.NewNopLogger(),
	}
}

// normalize returns a copy of the config with defaults filled in.
func (c *Config) normalize() *Config {
	n := *c
	if n.Workers <= 0 {
		n.Workers = DefaultWorkers
	}
	if n.MaxDepth <= 0 {
		n.MaxDepth = DefaultMaxDepth
	}
	if n.QueueSize <= 0 {
		n.QueueSize = DefaultQueueSize
	}
	if n.ResultBuffer == 0 {
		n.ResultBuffer = DefaultResultBuffer
	}
	if n.ResultBuffer < 2 {
		n.ResultBuffer = 2
	}
	n.ReadOptions = n.ReadOptions.Normalize()
	if n.IdleTimeout <= 0 {
		n.IdleTimeout = DefaultIdleTimeout
	}
	if n.Logger == nil {
		n.Logger = log.NewNopLogger()
	}
	if n.Drivers == nil {
		n.Drivers = DefaultDrivers(n.ReadOptions)
	} else {
		n.Drivers = append([]driver.Driver{}, n.Drivers...)
	}
	return &n
}
