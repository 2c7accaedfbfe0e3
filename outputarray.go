package argolid

import (
	"fmt"

	"github.com/r2dliu/argolid/internal/zarrio"
)

// outputArrayManager is C3: it creates one chunked output array per level
// with the plate's declared shape and the fixed chunk shape, and owns the
// write-capable handles for the rest of the composition's lifetime.
//
// Per spec.md §4.3 there is no partial state: callers clear the internal
// map before populating it, and any failure during population should be
// followed by a full reset so the facade never observes "some levels
// created, others not".
type outputArrayManager struct {
	store   zarrio.Store
	root    string // "<output_root>/<plate_name>"
	handles map[int]*zarrio.Array
}

func newOutputArrayManager(store zarrio.Store, root string) *outputArrayManager {
	return &outputArrayManager{store: store, root: root, handles: make(map[int]*zarrio.Array)}
}

func (m *outputArrayManager) levelPath(level int) string {
	return fmt.Sprintf("%s/data.zarr/0/%d", m.root, level)
}

// CreateLevel creates (or replaces, create-and-delete-existing) the output
// array for one level and records its handle.
func (m *outputArrayManager) CreateLevel(level int, plateShape, chunkShape []int, dtype zarrio.Dtype) error {
	spec := zarrio.GetWriteSpec(m.store, m.levelPath(level), plateShape, chunkShape, dtype)
	arr, err := zarrio.Open(spec, zarrio.ModeCreateAndDeleteExisting, zarrio.AccessWrite)
	if err != nil {
		return wrapError(KindIOFailure, err, "creating output array for level %d", level)
	}
	m.handles[level] = arr
	return nil
}

// Handle returns the write handle for level, if one has been created.
func (m *outputArrayManager) Handle(level int) (*zarrio.Array, bool) {
	arr, ok := m.handles[level]
	return arr, ok
}

// Reset drops every level handle and deletes the output array tree.
// Returns the first deletion error, if any, but always clears the map.
func (m *outputArrayManager) Reset() error {
	m.handles = make(map[int]*zarrio.Array)
	if err := m.store.DeletePrefix(m.root); err != nil {
		return wrapError(KindIOFailure, err, "deleting output tree at %s", m.root)
	}
	return nil
}

// Clear drops every level handle without touching the backing store, used
// when set_composition is starting over and is about to delete/recreate
// each level itself.
func (m *outputArrayManager) Clear() {
	m.handles = make(map[int]*zarrio.Array)
}
