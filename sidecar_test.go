package argolid

import (
	"testing"

	"github.com/r2dliu/argolid/internal/zarrio"
)

func TestSidecarEmitterWriteAll(t *testing.T) {
	store := zarrio.NewMemoryStore()
	em := newSidecarEmitter(store, "out/plate")

	plateShapes := map[int][]int{
		0: {1, 2, 1, 1024, 2048},
		1: {1, 2, 1, 512, 1024},
	}

	if err := em.WriteAll(plateShapes[0], "<u2", plateShapes); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{
		"out/plate/METADATA.ome.xml",
		"out/plate/data.zarr/0/.zattrs",
		"out/plate/.zgroup",
		"out/plate/data.zarr/.zgroup",
		"out/plate/data.zarr/0/.zgroup",
	} {
		if !store.Has(key) {
			t.Fatalf("expected %s to exist after WriteAll", key)
		}
	}
}

func TestSidecarEmitterIndividualWriters(t *testing.T) {
	store := zarrio.NewMemoryStore()
	em := newSidecarEmitter(store, "out/plate")

	if err := em.WriteDescriptorXML([]int{1, 1, 1, 10, 10}, "<u1"); err != nil {
		t.Fatal(err)
	}
	if store.Has("out/plate/data.zarr/0/.zattrs") {
		t.Fatal("WriteDescriptorXML should not have written plate attributes")
	}

	if err := em.WritePlateAttributes(map[int][]int{0: {1, 1, 1, 10, 10}}); err != nil {
		t.Fatal(err)
	}
	if !store.Has("out/plate/data.zarr/0/.zattrs") {
		t.Fatal("WritePlateAttributes did not write .zattrs")
	}
}
