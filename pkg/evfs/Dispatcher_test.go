// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/log"
)

func TestDispatchReleasedPool(t *testing.T) {
	e, err := New(&Config{
		Drivers:     []driver.Driver{},
		IdleTimeout: 10 * time.Millisecond,
		Logger:      log.NewNopLogger(),
	})
	require.NoError(t, err)
	defer e.Close()

	e.pool.Release()

	_, err = e.LoadFile("/data/file.txt").Wait(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrClosed)
	assert.ErrorIs(t, err, ants.ErrPoolClosed)
	assert.Equal(t, driver.KindClosed, driver.KindOf(err))
}
