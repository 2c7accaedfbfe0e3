package argolid

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/r2dliu/argolid/internal/zarrio"
)

// sourceRegistry is C1: it opens unit-pyramid per-level arrays, caches the
// resulting read handles, and discovers each unit pyramid's level set,
// per-level tile shape, and element type.
//
// The reader cache is keyed by the fully-qualified per-level path and is
// safe for concurrent Open calls — spec.md §5 permits either serializing
// insertion or a lock-free insert-or-get; sync.Map gives the latter for
// free and duplicate opens are idempotent by construction (LoadOrStore).
type sourceRegistry struct {
	store   zarrio.Store
	readers sync.Map // fully-qualified per-level path -> *zarrio.Array
}

func newSourceRegistry(store zarrio.Store) *sourceRegistry {
	return &sourceRegistry{store: store}
}

// perLevelPath is the on-disk location of one unit pyramid's array at one
// level: "<path>/data.zarr/0/<level>".
func perLevelPath(path string, level int) string {
	return fmt.Sprintf("%s/data.zarr/0/%d", path, level)
}

// Open returns the (possibly cached) read handle for the per-level array at
// path/data.zarr/0/level, opening it if this is the first request.
func (r *sourceRegistry) Open(path string, level int) (*zarrio.Array, error) {
	key := perLevelPath(path, level)

	if existing, ok := r.readers.Load(key); ok {
		return existing.(*zarrio.Array), nil
	}

	arr, err := zarrio.Open(zarrio.GetReadSpec(r.store, key), zarrio.ModeOpenExisting, zarrio.AccessRead)
	if err != nil {
		return nil, wrapError(KindSourceUnavailable, err, "opening unit pyramid array at %s", key)
	}

	actual, _ := r.readers.LoadOrStore(key, arr)
	return actual.(*zarrio.Array), nil
}

// sourceInfo is what Introspect discovers about one unit pyramid.
type sourceInfo struct {
	Levels     []int
	TileShapes map[int]TileShape
	DtypeName  string
	DtypeCode  zarrio.Code
}

// Introspect is spec.md §4.1's introspect(path): it reads the unit
// pyramid's multiscale sidecar to enumerate level identifiers, then opens
// each level's array to record its trailing (H_L, W_L) extents and element
// type.
func (r *sourceRegistry) Introspect(path string) (*sourceInfo, error) {
	levelStrs, err := zarrio.ReadMultiscaleLevels(r.store, fmt.Sprintf("%s/data.zarr/0/.zattrs", path))
	if err != nil {
		return nil, wrapError(KindSourceUnavailable, err, "reading multiscale sidecar for %s", path)
	}
	if len(levelStrs) == 0 {
		return nil, newError(KindSourceUnavailable, "unit pyramid at %s declares no pyramid levels", path)
	}

	info := &sourceInfo{TileShapes: make(map[int]TileShape, len(levelStrs))}

	for _, ls := range levelStrs {
		level, err := strconv.Atoi(ls)
		if err != nil {
			return nil, wrapError(KindSourceUnavailable, err, "invalid level identifier %q in %s", ls, path)
		}

		arr, err := r.Open(path, level)
		if err != nil {
			return nil, err
		}

		shape := arr.Shape()
		if len(shape) != 5 {
			return nil, newError(KindGeometryMismatch, "unit pyramid %s level %d has a non-5-D shape %v", path, level, shape)
		}

		code, err := zarrio.DtypeCode(arr.Dtype().String())
		if err != nil {
			return nil, wrapError(KindTypeMismatch, err, "unit pyramid %s level %d", path, level)
		}

		if info.DtypeName == "" {
			info.DtypeName = arr.Dtype().String()
			info.DtypeCode = code
		}

		info.Levels = append(info.Levels, level)
		info.TileShapes[level] = TileShape{
			Height: shape[zarrio.AxisY],
			Width:  shape[zarrio.AxisX],
		}
	}

	return info, nil
}
