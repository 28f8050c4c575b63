// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"errors"
	"strings"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/log"
	"github.com/deptofdefense/evfs/pkg/mount"
)

var errAborted = errors.New("load aborted before completion")

// Engine walks a virtual path across mounts and nested containers.
type Engine struct {
	MaxDepth int
	Logger   log.Logger
}

// Load resolves the path of the request and returns the contents of the file.
// Progress is sent to the request's sender while reading.
func (e *Engine) Load(r *Request) ([]byte, error) {
	m, suffix, ok := mount.Lookup(r.Mounts, r.Path)
	if !ok {
		return nil, driver.NewError(driver.KindInvalidMount, r.Path, nil)
	}
	current := m.Driver
	for depth := 0; depth < e.MaxDepth; depth++ {
		matched, err := FindEntry(r.ctx, current, suffix)
		if err != nil {
			return nil, err
		}
		blob, err := current.LoadFile(r.ctx, matched, r.sender)
		if err != nil {
			return nil, driver.NewFileError(matched, err)
		}
		if matched == suffix {
			return blob, nil
		}
		next, err := FindDriver(matched, blob, r.Drivers)
		if err != nil {
			return nil, err
		}
		_ = e.Logger.Debug("Descending into container", map[string]interface{}{
			"id":     r.ID,
			"entry":  matched,
			"driver": next.Name(),
			"depth":  depth + 1,
		})
		suffix = strings.TrimPrefix(suffix[len(matched):], "/")
		current = next
	}
	return nil, driver.NewError(driver.KindDecompressorNotFound, r.Path, nil)
}

// Run loads the file of the request and sends the terminal message.
func (e *Engine) Run(r *Request) {
	_ = e.Logger.Log("Loading file", map[string]interface{}{
		"id":   r.ID,
		"path": r.Path,
	})

	data, err := e.Load(r)
	if err != nil {
		if driver.KindOf(err) == driver.KindSendError {
			_ = r.sender.finish(driver.NewErrorMessage(err))
			_ = e.Logger.Debug("Receiver is gone", map[string]interface{}{
				"id":   r.ID,
				"path": r.Path,
			})
			return
		}
		if sendErr := r.sender.finish(driver.NewErrorMessage(err)); sendErr != nil {
			_ = e.Logger.Debug("Receiver is gone", map[string]interface{}{
				"id":   r.ID,
				"path": r.Path,
			})
			return
		}
		_ = e.Logger.Log("Error loading file", map[string]interface{}{
			"id":    r.ID,
			"path":  r.Path,
			"kind":  driver.KindOf(err).String(),
			"error": err,
		})
		return
	}

	if sendErr := r.sender.finish(driver.NewDoneMessage(data)); sendErr != nil {
		_ = e.Logger.Debug("Receiver is gone", map[string]interface{}{
			"id":   r.ID,
			"path": r.Path,
		})
		return
	}

	fields := map[string]interface{}{
		"id":   r.ID,
		"path": r.Path,
		"size": len(data),
	}
	if dropped := r.sender.droppedCount(); dropped > 0 {
		fields["dropped"] = dropped
	}
	_ = e.Logger.Log("Loaded file", fields)
}
