package argolid

import (
	"testing"

	"github.com/r2dliu/argolid/internal/threadpool"
	"github.com/r2dliu/argolid/internal/zarrio"
)

// fillUnitPyramidLevel creates a one-level unit pyramid array of shape
// (1,1,1,H,W) at path/data.zarr/0/level and fills it with fn(y,x), so tests
// can assert pixel provenance directly against a known formula.
func fillUnitPyramidLevel(t *testing.T, store zarrio.Store, path string, level, h, w int, fn func(y, x int) byte) {
	t.Helper()
	dtype, _ := zarrio.ChooseBaseDtype(zarrio.CodeU8)
	shape := []int{1, 1, 1, h, w}
	arr, err := zarrio.Open(zarrio.GetWriteSpec(store, perLevelPath(path, level), shape, shape, dtype), zarrio.ModeCreateAndDeleteExisting, zarrio.AccessWrite)
	if err != nil {
		t.Fatalf("creating unit pyramid %s: %v", path, err)
	}

	buf := make([]byte, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf[y*w+x] = fn(y, x)
		}
	}
	if err := arr.WriteRegion(buf, zarrio.Region{Y0: 0, Y1: h, X0: 0, X1: w}); err != nil {
		t.Fatalf("writing unit pyramid %s: %v", path, err)
	}
}

func quadrantFill(base byte) func(y, x int) byte {
	return func(y, x int) byte { return base + byte((y%7)+(x%5)) }
}

// newTestAssembler wires a chunkAssembler directly over a 2x2, single
// channel, single level composition matching spec.md §8 scenario E2, with
// H=W=600 unit pyramids and the real chunk edge S=1024.
func newTestAssembler(t *testing.T) (*chunkAssembler, zarrio.Store, *outputArrayManager) {
	t.Helper()
	store := zarrio.NewMemoryStore()

	fillUnitPyramidLevel(t, store, "s00", 0, 600, 600, quadrantFill(10))
	fillUnitPyramidLevel(t, store, "s10", 0, 600, 600, quadrantFill(20))
	fillUnitPyramidLevel(t, store, "s01", 0, 600, 600, quadrantFill(30))
	fillUnitPyramidLevel(t, store, "s11", 0, 600, 600, quadrantFill(40))

	composition, err := NewCompositionMap(map[GridCoord]string{
		{Col: 0, Row: 0, Channel: 0}: "s00",
		{Col: 1, Row: 0, Channel: 0}: "s10",
		{Col: 0, Row: 1, Channel: 0}: "s01",
		{Col: 1, Row: 1, Channel: 0}: "s11",
	})
	if err != nil {
		t.Fatal(err)
	}

	geometry := ComputePlateGeometry(2, 2, 1, map[int]TileShape{0: {Height: 600, Width: 600}})
	dtype, _ := zarrio.ChooseBaseDtype(zarrio.CodeU8)

	outputs := newOutputArrayManager(store, "out/plate")
	plateShape, _ := geometry.PlateShape(0)
	if err := outputs.CreateLevel(0, plateShape, ChunkShape(ChunkEdge), dtype); err != nil {
		t.Fatal(err)
	}

	assembler := &chunkAssembler{
		pool:        threadpool.New(0),
		registry:    newSourceRegistry(store),
		composition: composition,
		geometry:    geometry,
		outputs:     outputs,
		cache:       newMaterializationCache(),
		elemWidth:   1,
		chunkEdge:   ChunkEdge,
	}
	return assembler, store, outputs
}

func readPixel(t *testing.T, outputs *outputArrayManager, level, y, x int) byte {
	t.Helper()
	handle, ok := outputs.Handle(level)
	if !ok {
		t.Fatalf("no output handle for level %d", level)
	}
	buf := make([]byte, 1)
	if err := handle.ReadRegion(buf, zarrio.Region{Y0: y, Y1: y + 1, X0: x, X1: x + 1}); err != nil {
		t.Fatal(err)
	}
	return buf[0]
}

func TestAssemblerPixelProvenanceAcrossQuadrants(t *testing.T) {
	a, _, outputs := newTestAssembler(t)

	if err := a.Materialize(0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		y, x int
		base byte
		ly   int
		lx   int
	}{
		{0, 0, 10, 0, 0},       // top-left quadrant: s00
		{0, 1023, 20, 0, 423},  // top-right quadrant: s10
		{1023, 0, 30, 423, 0},  // bottom-left quadrant: s01
		{1023, 1023, 40, 423, 423}, // bottom-right quadrant: s11
	}
	for _, c := range cases {
		got := readPixel(t, outputs, 0, c.y, c.x)
		want := quadrantFill(c.base)(c.ly, c.lx)
		if got != want {
			t.Errorf("pixel (%d,%d) = %d, want %d", c.y, c.x, got, want)
		}
	}
}

func TestAssemblerIdempotence(t *testing.T) {
	a, _, _ := newTestAssembler(t)
	key := chunkKey{Level: 0, Channel: 0, YChunk: 0, XChunk: 0}

	if err := a.Materialize(0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if a.cache.Len() != 1 {
		t.Fatalf("cache length after first call = %d, want 1", a.cache.Len())
	}
	if err := a.Materialize(0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if a.cache.Len() != 1 {
		t.Fatalf("cache length after second call = %d, want 1 (no new work)", a.cache.Len())
	}
	if !a.cache.Has(key) {
		t.Fatal("expected key to be recorded")
	}
}

func TestAssemblerBoundaryChunkOnlyWritesInBounds(t *testing.T) {
	a, _, outputs := newTestAssembler(t)

	// plate is 1200x1200; chunk (1,1) at S=1024 covers [1024:1200,1024:1200],
	// a 176x176 region, not the full 1024x1024.
	if err := a.Materialize(0, 0, 1, 1); err != nil {
		t.Fatal(err)
	}

	got := readPixel(t, outputs, 0, 1199, 1199)
	want := quadrantFill(40)(599, 599)
	if got != want {
		t.Fatalf("pixel (1199,1199) = %d, want %d", got, want)
	}
}

func TestAssemblerPreconditionErrors(t *testing.T) {
	a, _, _ := newTestAssembler(t)

	if err := a.Materialize(5, 0, 0, 0); err == nil {
		t.Fatal("expected UnknownLevel for a level that was never introspected")
	} else if ce := err.(*CompositorError); ce.Kind() != KindUnknownLevel {
		t.Fatalf("kind = %v, want UnknownLevel", ce.Kind())
	}

	if err := a.Materialize(0, 7, 0, 0); err == nil {
		t.Fatal("expected UnknownChannel for a channel outside [0,1)")
	} else if ce := err.(*CompositorError); ce.Kind() != KindUnknownChannel {
		t.Fatalf("kind = %v, want UnknownChannel", ce.Kind())
	}

	if err := a.Materialize(0, 0, 99, 0); err == nil {
		t.Fatal("expected OutOfRange for a chunk entirely past the plate extent")
	} else if ce := err.(*CompositorError); ce.Kind() != KindOutOfRange {
		t.Fatalf("kind = %v, want OutOfRange", ce.Kind())
	}
}
