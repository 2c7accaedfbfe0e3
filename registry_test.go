package argolid

import (
	"testing"

	"github.com/r2dliu/argolid/internal/zarrio"
)

// writeTestUnitPyramid creates a minimal one-level-per-entry unit pyramid in
// store at path: a multiscale .zattrs listing the given levels, and one
// array per level with the given (H, W) tile shape and dtype.
func writeTestUnitPyramid(t *testing.T, store zarrio.Store, path string, levels []int, tileShape TileShape, code zarrio.Code) {
	t.Helper()

	shapes := make(map[int][]int, len(levels))
	dtype, err := zarrio.ChooseBaseDtype(code)
	if err != nil {
		t.Fatalf("ChooseBaseDtype: %v", err)
	}

	for _, level := range levels {
		shape := []int{1, 1, 1, tileShape.Height, tileShape.Width}
		shapes[level] = shape

		spec := zarrio.GetWriteSpec(store, perLevelPath(path, level), shape, []int{1, 1, 1, tileShape.Height, tileShape.Width}, dtype)
		if _, err := zarrio.Open(spec, zarrio.ModeCreateAndDeleteExisting, zarrio.AccessWrite); err != nil {
			t.Fatalf("creating unit pyramid level %d: %v", level, err)
		}
	}

	if err := zarrio.WritePlateAttributes(store, path+"/data.zarr/0", shapes); err != nil {
		t.Fatalf("writing unit pyramid sidecar: %v", err)
	}
}

func TestRegistryOpenIsMemoized(t *testing.T) {
	store := zarrio.NewMemoryStore()
	writeTestUnitPyramid(t, store, "src", []int{0}, TileShape{Height: 16, Width: 16}, zarrio.CodeU8)

	reg := newSourceRegistry(store)
	a, err := reg.Open("src", 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Open("src", 0)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("second Open returned a different handle, want the same cached one")
	}
}

func TestRegistryIntrospectDiscoversLevelsAndDtype(t *testing.T) {
	store := zarrio.NewMemoryStore()
	writeTestUnitPyramid(t, store, "src", []int{0, 1, 2}, TileShape{Height: 32, Width: 48}, zarrio.CodeU16)

	reg := newSourceRegistry(store)
	info, err := reg.Introspect("src")
	if err != nil {
		t.Fatal(err)
	}

	if len(info.Levels) != 3 {
		t.Fatalf("levels = %v, want 3 entries", info.Levels)
	}
	if info.DtypeCode != zarrio.CodeU16 {
		t.Fatalf("dtype code = %v, want CodeU16", info.DtypeCode)
	}
	ts, ok := info.TileShapes[0]
	if !ok || ts.Height != 32 || ts.Width != 48 {
		t.Fatalf("tile shape at level 0 = %+v, want {32 48}", ts)
	}
}

func TestRegistryOpenUnknownPathFails(t *testing.T) {
	store := zarrio.NewMemoryStore()
	reg := newSourceRegistry(store)

	if _, err := reg.Open("nope", 0); err == nil {
		t.Fatal("expected an error opening a nonexistent unit pyramid")
	} else if ce, ok := err.(*CompositorError); !ok || ce.Kind() != KindSourceUnavailable {
		t.Fatalf("err = %v, want KindSourceUnavailable", err)
	}
}
