// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package driver

const (
	DefaultStreamThreshold = int64(5 * 1024 * 1024)
	DefaultStreamChunks    = 10
)

// ReadOptions configures the streaming read policy of drivers backed by a byte stream.
type ReadOptions struct {
	// Streams with a known length below Threshold are read in one pass.
	Threshold int64
	// Longer streams are read in Chunks chunks with progress after each.
	Chunks int
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Threshold: DefaultStreamThreshold,
		Chunks:    DefaultStreamChunks,
	}
}

// Normalize replaces invalid values with the defaults.
func (o ReadOptions) Normalize() ReadOptions {
	if o.Threshold <= 0 {
		o.Threshold = DefaultStreamThreshold
	}
	if o.Chunks <= 0 {
		o.Chunks = DefaultStreamChunks
	}
	return o
}
