// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"sync"

	"github.com/deptofdefense/evfs/pkg/driver"
)

// Handle receives the messages of a single load.
type Handle struct {
	id       string
	messages <-chan driver.Message
	gone     chan struct{}
	once     sync.Once
}

// ID returns the trace id of the request, as written to the log.
func (h *Handle) ID() string {
	return h.id
}

// Recv returns the result channel.  It yields zero or more progress messages
// followed by exactly one done or error message, and is then closed.
func (h *Handle) Recv() <-chan driver.Message {
	return h.messages
}

// Wait blocks until the load completes and returns its data.
// If onProgress is not nil, it is called for each progress message.
func (h *Handle) Wait(onProgress func(f float32)) ([]byte, error) {
	for m := range h.messages {
		switch m.Kind {
		case driver.MessageProgress:
			if onProgress != nil {
				onProgress(m.Progress)
			}
		case driver.MessageDone:
			return m.Data, nil
		case driver.MessageError:
			return nil, m.Err
		}
	}
	return nil, driver.NewError(driver.KindSendError, "", nil)
}

// Close tells the worker that nobody is listening anymore.
// The load is not interrupted, but its remaining messages are discarded.
func (h *Handle) Close() {
	h.once.Do(func() {
		close(h.gone)
	})
}
