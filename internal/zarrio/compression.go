package zarrio

import (
	"io"

	"github.com/qri-io/dataset/compression"
)

// CompressionMeta mirrors the "compressor" object of a .zarray document. A
// zero value (empty ID) means chunks are stored uncompressed, which is what
// this module writes for its own plate arrays — unit pyramids discovered
// from elsewhere may have been written with a named codec, so reads must
// still honor whatever compressor their .zarray declares.
type CompressionMeta struct {
	ID     string `json:"id,omitempty"`
	Cname  string `json:"cname,omitempty"`
	Clevel int    `json:"clevel,omitempty"`
	Shuffle int   `json:"shuffle,omitempty"`
}

// Reader wraps r in a decompressing reader according to m. An empty ID is
// treated as "no compression" rather than an error, since that is how this
// module's own writer leaves the field.
func (m CompressionMeta) Reader(r io.ReadCloser) (io.ReadCloser, error) {
	if m.ID == "" {
		return r, nil
	}
	return compression.Decompressor(m.ID, r)
}
