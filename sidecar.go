package argolid

import (
	"errors"
	"fmt"

	"github.com/r2dliu/argolid/internal/zarrio"
)

// sidecarEmitter is C7: once plate shapes and the element type are known,
// it invokes the three external writers that produce
// METADATA.ome.xml/.zattrs/.zgroup. It never reads anything back, and a
// failure here is surfaced to the caller without rolling back the output
// arrays C3 already created (spec.md §4.7, §7).
type sidecarEmitter struct {
	store zarrio.Store
	root  string // "<output_root>/<plate_name>"
}

func newSidecarEmitter(store zarrio.Store, root string) *sidecarEmitter {
	return &sidecarEmitter{store: store, root: root}
}

// WriteDescriptorXML emits METADATA.ome.xml for the given level-0 plate
// shape and element type. Exposed independently of WriteAll per the
// original implementation's create_xml, per SPEC_FULL.md's "supplemented
// features".
func (s *sidecarEmitter) WriteDescriptorXML(plateShapeLevel0 []int, dtypeName string) error {
	path := fmt.Sprintf("%s/METADATA.ome.xml", s.root)
	if err := zarrio.WriteDescriptorXML(s.store, path, plateShapeLevel0, dtypeName); err != nil {
		return wrapError(KindSidecarFailure, err, "writing descriptor XML")
	}
	return nil
}

// WritePlateAttributes emits the .zattrs document recording every level's
// plate shape.
func (s *sidecarEmitter) WritePlateAttributes(plateShapesByLevel map[int][]int) error {
	dataSubpath := fmt.Sprintf("%s/data.zarr/0", s.root)
	if err := zarrio.WritePlateAttributes(s.store, dataSubpath, plateShapesByLevel); err != nil {
		return wrapError(KindSidecarFailure, err, "writing plate attributes")
	}
	return nil
}

// WriteGroupMarkers emits the .zgroup marker files at the plate root and
// its data.zarr group roots.
func (s *sidecarEmitter) WriteGroupMarkers() error {
	if err := zarrio.WriteGroupMarkers(s.store, s.root); err != nil {
		return wrapError(KindSidecarFailure, err, "writing group markers")
	}
	return nil
}

// WriteAll emits every sidecar, matching the original's
// create_auxiliary_files. A failure from one writer does not prevent the
// others from being attempted; all errors are joined.
func (s *sidecarEmitter) WriteAll(plateShapeLevel0 []int, dtypeName string, plateShapesByLevel map[int][]int) error {
	var errs []error
	if err := s.WriteDescriptorXML(plateShapeLevel0, dtypeName); err != nil {
		errs = append(errs, err)
	}
	if err := s.WritePlateAttributes(plateShapesByLevel); err != nil {
		errs = append(errs, err)
	}
	if err := s.WriteGroupMarkers(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return wrapError(KindSidecarFailure, errors.Join(errs...), "%d of 3 sidecar writers failed", len(errs))
}
