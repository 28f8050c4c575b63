// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"context"

	"github.com/gofrs/uuid"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/mount"
)

// Request is a queued load with its own snapshot of the mount table and driver registry.
type Request struct {
	ID      string
	Path    string
	Mounts  []mount.Mount
	Drivers []driver.Driver
	ctx     context.Context
	sender  *sender
}

// abort reports an error if the request ended without a terminal message.
func (r *Request) abort() {
	if r.sender.isTerminated() {
		return
	}
	_ = r.sender.finish(driver.NewErrorMessage(driver.NewError(driver.KindUnknown, r.Path, errAborted)))
}

// NewRequest returns a request and the handle receiving its messages.
func NewRequest(ctx context.Context, p string, mounts []mount.Mount, drivers []driver.Driver, resultBuffer int) (*Request, *Handle) {
	if ctx == nil {
		ctx = context.Background()
	}
	gone := make(chan struct{})
	s := newSender(max(resultBuffer, 2), gone)
	id := uuid.Must(uuid.NewV4()).String()
	r := &Request{
		ID:      id,
		Path:    p,
		Mounts:  mounts,
		Drivers: drivers,
		ctx:     ctx,
		sender:  s,
	}
	h := &Handle{
		id:       id,
		messages: s.messages,
		gone:     gone,
	}
	return r, h
}
