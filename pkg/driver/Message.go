// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package driver

import (
	"fmt"
)

// MessageKind is the tag of a Message.
type MessageKind int

const (
	MessageProgress MessageKind = iota
	MessageDone
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageProgress:
		return "progress"
	case MessageDone:
		return "done"
	case MessageError:
		return "error"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Message is a single element of a load's result stream.
// Only the field matching Kind is set.
type Message struct {
	Kind     MessageKind
	Progress float32
	Data     []byte
	Err      error
}

// Terminal returns true for Done and Error messages.
func (m Message) Terminal() bool {
	return m.Kind == MessageDone || m.Kind == MessageError
}

func NewProgressMessage(f float32) Message {
	return Message{Kind: MessageProgress, Progress: f}
}

func NewDoneMessage(data []byte) Message {
	return Message{Kind: MessageDone, Data: data}
}

func NewErrorMessage(err error) Message {
	return Message{Kind: MessageError, Err: err}
}

// ProgressSender receives progress fractions from a driver while it reads.
// SendProgress returns an error of kind KindSendError once nobody is listening anymore.
type ProgressSender interface {
	SendProgress(f float32) error
}

// ProgressFunc adapts a function to the ProgressSender interface.
type ProgressFunc func(f float32) error

func (fn ProgressFunc) SendProgress(f float32) error {
	return fn(f)
}

// Discard is a ProgressSender that ignores all progress.
var Discard ProgressSender = ProgressFunc(func(f float32) error { return nil })
