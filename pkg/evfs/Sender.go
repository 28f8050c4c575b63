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

// sender writes the messages of one request to its result channel.
// The last slot of the channel is reserved for the terminal message, so sends never block.
type sender struct {
	mutex      sync.Mutex
	messages   chan driver.Message
	gone       <-chan struct{}
	last       float32
	dropped    int
	terminated bool
}

func (s *sender) receiverGone() bool {
	select {
	case <-s.gone:
		return true
	default:
		return false
	}
}

// SendProgress clamps f into [0, 1] and raises it to the last fraction sent,
// so that progress never decreases when a load descends into a nested container.
func (s *sender) SendProgress(f float32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.terminated || s.receiverGone() {
		return driver.ErrSend
	}
	f = max(min(f, 1), 0)
	if f < s.last {
		f = s.last
	}
	s.last = f
	if len(s.messages) >= cap(s.messages)-1 {
		s.dropped++
		return nil
	}
	s.messages <- driver.NewProgressMessage(f)
	return nil
}

// finish sends the terminal message and closes the channel.  Only the first call has an effect.
func (s *sender) finish(m driver.Message) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.terminated {
		return nil
	}
	s.terminated = true
	defer close(s.messages)
	if s.receiverGone() {
		return driver.ErrSend
	}
	s.messages <- m
	return nil
}

func (s *sender) isTerminated() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.terminated
}

func (s *sender) droppedCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.dropped
}

func newSender(size int, gone <-chan struct{}) *sender {
	return &sender{
		messages: make(chan driver.Message, size),
		gone:     gone,
	}
}
