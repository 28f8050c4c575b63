// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package mount

import (
	"sync"
)

// Table is an ordered, append-only list of mounts.  Overlapping targets are allowed.
type Table struct {
	mutex  sync.RWMutex
	mounts []Mount
}

func (t *Table) Add(m Mount) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.mounts = append(t.mounts, m)
}

// Snapshot returns a copy of the mounts in registration order.
// Mounts added later are not visible in the copy.
func (t *Table) Snapshot() []Mount {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	snapshot := make([]Mount, len(t.mounts))
	copy(snapshot, t.mounts)
	return snapshot
}

func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.mounts)
}

func NewTable() *Table {
	return &Table{mounts: []Mount{}}
}
