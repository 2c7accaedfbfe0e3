package zarrio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

func newReader(b []byte) io.Reader { return bytes.NewReader(b) }

// Axis indices into a 5-D (t, c, z, y, x) pyramid array, named per spec.md
// §9 "Coordinate conventions" rather than left as magic numbers.
const (
	AxisT = 0
	AxisC = 1
	AxisZ = 2
	AxisY = 3
	AxisX = 4
)

// Mode selects how Open behaves with respect to any array already present
// at a spec's path.
type Mode int

const (
	// ModeOpenExisting opens an array that must already exist.
	ModeOpenExisting Mode = iota
	// ModeCreateAndDeleteExisting creates a new array at the path,
	// removing anything already there first.
	ModeCreateAndDeleteExisting
)

// Access names the intended use of a handle returned by Open. Open does
// not record it: every handle supports both ReadRegion and WriteRegion.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
)

// Spec is the opaque descriptor produced by GetReadSpec/GetWriteSpec and
// consumed by Open — the narrow external-collaborator interface of
// spec.md §6.
type Spec struct {
	store Store
	path  string

	create bool
	shape  []int
	chunks []int
	dtype  Dtype
}

// GetReadSpec produces a descriptor for opening an existing array for
// reading.
func GetReadSpec(store Store, path string) Spec {
	return Spec{store: store, path: path}
}

// GetWriteSpec produces a descriptor for creating (and replacing) an array
// with the given shape, chunk shape, and on-disk element type.
func GetWriteSpec(store Store, path string, shape, chunks []int, dtype Dtype) Spec {
	return Spec{
		store:  store,
		path:   path,
		create: true,
		shape:  append([]int(nil), shape...),
		chunks: append([]int(nil), chunks...),
		dtype:  dtype,
	}
}

// Array is a handle onto one chunked 5-D array, opened either for read or
// for write. Handles are safe to share across goroutines performing
// concurrent reads, or concurrent writes to disjoint chunks; nothing about
// a handle may be mutated once Open has returned it (spec.md §5, §9
// "Handle sharing").
type Array struct {
	store Store
	path  string
	meta  ArrayMeta
	mode  Mode
}

// Open resolves a Spec into a handle. In ModeCreateAndDeleteExisting, any
// existing array at the path is removed first and a fresh .zarray is
// written; in ModeOpenExisting the existing .zarray is read back.
func Open(spec Spec, mode Mode, access Access) (*Array, error) {
	switch mode {
	case ModeCreateAndDeleteExisting:
		if err := spec.store.DeletePrefix(spec.path); err != nil {
			return nil, fmt.Errorf("deleting existing array at %s: %w", spec.path, err)
		}
		meta := ArrayMeta{
			ZarrFormat:         2,
			Shape:              spec.shape,
			Chunks:             spec.chunks,
			Dtype:              spec.dtype,
			Compressor:         CompressionMeta{},
			FillValue:          0,
			Order:              "C",
			DimensionSeparator: ".",
		}
		if err := putArrayMeta(spec.store, spec.path, meta); err != nil {
			return nil, fmt.Errorf("writing .zarray at %s: %w", spec.path, err)
		}
		return &Array{store: spec.store, path: spec.path, meta: meta, mode: mode}, nil

	case ModeOpenExisting:
		meta, err := getArrayMeta(spec.store, spec.path)
		if err != nil {
			return nil, fmt.Errorf("opening array at %s: %w", spec.path, err)
		}
		return &Array{store: spec.store, path: spec.path, meta: *meta, mode: mode}, nil

	default:
		return nil, fmt.Errorf("unknown open mode %v", mode)
	}
}

func getArrayMeta(store Store, path string) (*ArrayMeta, error) {
	f, err := store.Get(joinKey(path, string(MTArray)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := &ArrayMeta{}
	if err := json.NewDecoder(f).Decode(meta); err != nil {
		return nil, fmt.Errorf("decoding .zarray: %w", err)
	}
	return meta, nil
}

func putArrayMeta(store Store, path string, meta ArrayMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return store.Put(joinKey(path, string(MTArray)), newReader(b))
}

// Meta returns the array's current .zarray metadata.
func (a *Array) Meta() ArrayMeta { return a.meta }

// Shape returns the array's full 5-D shape.
func (a *Array) Shape() []int { return a.meta.Shape }

// Dtype returns the element type declared in the array's .zarray.
func (a *Array) Dtype() Dtype { return a.meta.Dtype }

// Region names the 5-D rectangle of one read or write: a pinned index
// along T, C, and Z, and a half-open [Start, Stop) range along Y and X.
// This mirrors spec.md §6's "reads/writes over 5-D rectangles into/from a
// caller-provided 2-D destination (with y and x axes explicit, other axes
// pinned)".
type Region struct {
	T, C, Z    int
	Y0, Y1     int
	X0, X1     int
}

func (r Region) height() int { return r.Y1 - r.Y0 }
func (r Region) width() int  { return r.X1 - r.X0 }

// ReadRegion reads the rectangle described by r into dst, a caller-owned
// buffer of exactly r.height()*r.width()*elementByteWidth bytes, laid out
// row-major over (y, x).
func (a *Array) ReadRegion(dst []byte, r Region) error {
	elemSize := a.meta.Dtype.ByteSize
	wantLen := r.height() * r.width() * elemSize
	if len(dst) != wantLen {
		return fmt.Errorf("destination buffer is %d bytes, want %d", len(dst), wantLen)
	}
	outStrideY := r.width() * elemSize

	return a.forEachChunk(r, func(key string, chunkShape []int, yp, xp chunkDimProjection) error {
		chunkBuf, err := a.readChunk(key, chunkShape)
		if err != nil {
			return err
		}
		base := chunkElementOffset(chunkShape, r.T, r.C, r.Z) * elemSize
		chunkStrideY := chunkShape[AxisX] * elemSize

		for y := yp.ChunkStart; y < yp.ChunkStop; y++ {
			srcOff := base + y*chunkStrideY + xp.ChunkStart*elemSize
			dstY := yp.OutputStart + (y - yp.ChunkStart)
			dstOff := dstY*outStrideY + xp.OutputStart*elemSize
			n := (xp.ChunkStop - xp.ChunkStart) * elemSize
			copy(dst[dstOff:dstOff+n], chunkBuf[srcOff:srcOff+n])
		}
		return nil
	})
}

// WriteRegion writes src, a row-major (y, x) buffer of exactly
// r.height()*r.width()*elementByteWidth bytes, into the rectangle described
// by r.
func (a *Array) WriteRegion(src []byte, r Region) error {
	elemSize := a.meta.Dtype.ByteSize
	wantLen := r.height() * r.width() * elemSize
	if len(src) != wantLen {
		return fmt.Errorf("source buffer is %d bytes, want %d", len(src), wantLen)
	}
	srcStrideY := r.width() * elemSize

	return a.forEachChunk(r, func(key string, chunkShape []int, yp, xp chunkDimProjection) error {
		chunkBuf, err := a.readChunkForWrite(key, chunkShape)
		if err != nil {
			return err
		}
		base := chunkElementOffset(chunkShape, r.T, r.C, r.Z) * elemSize
		chunkStrideY := chunkShape[AxisX] * elemSize

		for y := yp.ChunkStart; y < yp.ChunkStop; y++ {
			dstOff := base + y*chunkStrideY + xp.ChunkStart*elemSize
			srcY := yp.OutputStart + (y - yp.ChunkStart)
			srcOff := srcY*srcStrideY + xp.OutputStart*elemSize
			n := (xp.ChunkStop - xp.ChunkStart) * elemSize
			copy(chunkBuf[dstOff:dstOff+n], src[srcOff:srcOff+n])
		}
		return a.store.Put(key, newReader(chunkBuf))
	})
}

// forEachChunk walks every backing chunk r touches and invokes fn once per
// chunk with the chunk's store key, its declared shape, and the Y/X
// projections describing which slice of that chunk the request covers.
func (a *Array) forEachChunk(r Region, fn func(key string, chunkShape []int, yp, xp chunkDimProjection) error) error {
	chunkShape := a.meta.Chunks
	if len(chunkShape) != 5 {
		return fmt.Errorf("array at %s has a non-5-D chunk shape %v", a.path, chunkShape)
	}

	tChunk := r.T / chunkShape[AxisT]
	zChunk := r.Z / chunkShape[AxisZ]
	cChunk := r.C / chunkShape[AxisC]

	yProjections := projectAxis(r.Y0, r.Y1, chunkShape[AxisY])
	xProjections := projectAxis(r.X0, r.X1, chunkShape[AxisX])

	for _, yp := range yProjections {
		for _, xp := range xProjections {
			key := a.chunkKey(tChunk, cChunk, zChunk, yp.ChunkIndex, xp.ChunkIndex)
			if err := fn(key, chunkShape, yp, xp); err != nil {
				return fmt.Errorf("chunk %s: %w", key, err)
			}
		}
	}
	return nil
}

// chunkElementOffset returns the element offset within one chunk buffer of
// the (t, c, z) triple's local position, assuming the chunk buffer is laid
// out row-major over its full 5-D chunk shape. t, c and z are array
// coordinates; the function reduces them to chunk-local ones itself.
func chunkElementOffset(chunkShape []int, t, c, z int) int {
	tLocal := t % chunkShape[AxisT]
	cLocal := c % chunkShape[AxisC]
	zLocal := z % chunkShape[AxisZ]

	strideC := chunkShape[AxisZ] * chunkShape[AxisY] * chunkShape[AxisX]
	strideT := chunkShape[AxisC] * strideC
	strideZ := chunkShape[AxisY] * chunkShape[AxisX]

	return tLocal*strideT + cLocal*strideC + zLocal*strideZ
}

func (a *Array) chunkKey(t, c, z, y, x int) string {
	sep := a.meta.Separator()
	name := fmt.Sprintf("%d%s%d%s%d%s%d%s%d", t, sep, c, sep, z, sep, y, sep, x)
	return joinKey(a.path, name)
}

func chunkElementCount(chunkShape []int) int {
	n := 1
	for _, d := range chunkShape {
		n *= d
	}
	return n
}

// readChunk reads and decompresses one chunk, returning a zero-filled
// buffer of the declared chunk shape if the chunk has never been written
// (the FillValue convention of spec.md §3's "output arrays ... are empty").
func (a *Array) readChunk(key string, chunkShape []int) ([]byte, error) {
	wantLen := chunkElementCount(chunkShape) * a.meta.Dtype.ByteSize

	rc, err := a.store.Get(key)
	if err != nil {
		if isNotFound(err) {
			return make([]byte, wantLen), nil
		}
		return nil, err
	}
	defer rc.Close()

	decomp, err := a.meta.Compressor.Reader(rc)
	if err != nil {
		return nil, fmt.Errorf("opening decompressor: %w", err)
	}
	defer decomp.Close()

	buf := make([]byte, wantLen)
	if _, err := io.ReadFull(decomp, buf); err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading chunk body: %w", err)
	}
	return buf, nil
}

// readChunkForWrite is readChunk specialized for the write path: this
// module always writes its own chunks uncompressed, so no decompressor is
// ever needed for a chunk this array itself produced.
func (a *Array) readChunkForWrite(key string, chunkShape []int) ([]byte, error) {
	wantLen := chunkElementCount(chunkShape) * a.meta.Dtype.ByteSize

	rc, err := a.store.Get(key)
	if err != nil {
		if isNotFound(err) {
			return make([]byte, wantLen), nil
		}
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, wantLen)
	if _, err := io.ReadFull(rc, buf); err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading chunk body: %w", err)
	}
	return buf, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotfound)
}

func joinKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}
