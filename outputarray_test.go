package argolid

import (
	"testing"

	"github.com/r2dliu/argolid/internal/zarrio"
)

func TestOutputArrayManagerCreateLevelAndHandle(t *testing.T) {
	store := zarrio.NewMemoryStore()
	mgr := newOutputArrayManager(store, "out/plate")
	dtype, _ := zarrio.ChooseBaseDtype(zarrio.CodeU16)

	if err := mgr.CreateLevel(0, []int{1, 2, 1, 2048, 2048}, ChunkShape(1024), dtype); err != nil {
		t.Fatal(err)
	}

	handle, ok := mgr.Handle(0)
	if !ok {
		t.Fatal("no handle for level 0 after CreateLevel")
	}
	if got := handle.Shape(); got[zarrio.AxisY] != 2048 {
		t.Fatalf("shape = %v, want y=2048", got)
	}

	if _, ok := mgr.Handle(1); ok {
		t.Fatal("Handle(1) should be absent, level 1 was never created")
	}
}

func TestOutputArrayManagerResetDeletesTreeAndHandles(t *testing.T) {
	store := zarrio.NewMemoryStore()
	mgr := newOutputArrayManager(store, "out/plate")
	dtype, _ := zarrio.ChooseBaseDtype(zarrio.CodeU8)

	if err := mgr.CreateLevel(0, []int{1, 1, 1, 16, 16}, ChunkShape(1024), dtype); err != nil {
		t.Fatal(err)
	}
	handle, _ := mgr.Handle(0)
	if err := handle.WriteRegion(make([]byte, 16*16), zarrio.Region{Y0: 0, Y1: 16, X0: 0, X1: 16}); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Reset(); err != nil {
		t.Fatal(err)
	}

	if _, ok := mgr.Handle(0); ok {
		t.Fatal("handle for level 0 should be gone after Reset")
	}
	if store.Has("out/plate/data.zarr/0/0/.zarray") {
		t.Fatal(".zarray should have been deleted by Reset")
	}
}
