package zarrio

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
)

// omeXML is a minimal OME-XML document carrying just enough of the OME
// schema to describe one plate image's pixel geometry and type — the
// fields spec.md §4.7/§6 actually asks the sidecar emitter to record.
// This module does not attempt a full OME-XML schema; no example in the
// pack links an OME/bioformats XML library, and the only external
// consumer named in spec.md is "a descriptor-XML... writer" taking plate
// shape and dtype, so a purpose-built minimal schema is what's grounded.
type omeXML struct {
	XMLName xml.Name   `xml:"OME"`
	Xmlns   string     `xml:"xmlns,attr"`
	Image   omeXMLImage `xml:"Image"`
}

type omeXMLImage struct {
	Name   string      `xml:"Name,attr"`
	Pixels omeXMLPixels `xml:"Pixels"`
}

type omeXMLPixels struct {
	DimensionOrder string `xml:"DimensionOrder,attr"`
	Type           string `xml:"Type,attr"`
	SizeT          int    `xml:"SizeT,attr"`
	SizeC          int    `xml:"SizeC,attr"`
	SizeZ          int    `xml:"SizeZ,attr"`
	SizeY          int    `xml:"SizeY,attr"`
	SizeX          int    `xml:"SizeX,attr"`
}

// WriteDescriptorXML writes METADATA.ome.xml describing the level-0 plate
// shape and element type. This is the write_descriptor_xml external
// collaborator of spec.md §6.
func WriteDescriptorXML(store Store, xmlPath string, plateShapeLevel0 []int, dtypeName string) error {
	if len(plateShapeLevel0) != 5 {
		return fmt.Errorf("descriptor XML needs a 5-D plate shape, got %v", plateShapeLevel0)
	}

	doc := omeXML{
		Xmlns: "http://www.openmicroscopy.org/Schemas/OME/2016-06",
		Image: omeXMLImage{
			Name: "plate",
			Pixels: omeXMLPixels{
				DimensionOrder: "XYZCT",
				Type:           dtypeName,
				SizeT:          plateShapeLevel0[AxisT],
				SizeC:          plateShapeLevel0[AxisC],
				SizeZ:          plateShapeLevel0[AxisZ],
				SizeY:          plateShapeLevel0[AxisY],
				SizeX:          plateShapeLevel0[AxisX],
			},
		},
	}

	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling descriptor XML: %w", err)
	}
	b = append([]byte(xml.Header), b...)

	return store.Put(xmlPath, newReader(b))
}

// plateAttributes is the .zattrs document written alongside the group of
// per-level plate arrays, recording each level's shape the way OME-Zarr
// "multiscales" metadata does.
type plateAttributes struct {
	Multiscales []multiscale `json:"multiscales"`
}

type multiscale struct {
	Datasets []multiscaleDataset `json:"datasets"`
}

type multiscaleDataset struct {
	Path  string `json:"path"`
	Shape []int  `json:"shape"`
}

// WritePlateAttributes writes the .zattrs document at
// <dataSubpath>/.zattrs recording each level's plate shape. This is the
// write_plate_attributes external collaborator of spec.md §6.
func WritePlateAttributes(store Store, dataSubpath string, plateShapesByLevel map[int][]int) error {
	attrs := plateAttributes{}
	levels := sortedLevels(plateShapesByLevel)
	for _, level := range levels {
		attrs.Multiscales = appendDataset(attrs.Multiscales, level, plateShapesByLevel[level])
	}

	b, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plate attributes: %w", err)
	}
	return store.Put(joinKey(dataSubpath, string(MTAttributes)), newReader(b))
}

func appendDataset(multiscales []multiscale, level int, shape []int) []multiscale {
	ds := multiscaleDataset{Path: fmt.Sprintf("%d", level), Shape: shape}
	if len(multiscales) == 0 {
		multiscales = append(multiscales, multiscale{})
	}
	multiscales[0].Datasets = append(multiscales[0].Datasets, ds)
	return multiscales
}

func sortedLevels(m map[int][]int) []int {
	levels := make([]int, 0, len(m))
	for l := range m {
		levels = append(levels, l)
	}
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j-1] > levels[j]; j-- {
			levels[j-1], levels[j] = levels[j], levels[j-1]
		}
	}
	return levels
}

// WriteGroupMarkers writes the .zgroup marker at the plate root and at the
// data.zarr group roots, so readers that walk the Zarr hierarchy recognize
// each level of nesting as a group. This is the write_group_markers
// external collaborator of spec.md §6.
func WriteGroupMarkers(store Store, outputPath string) error {
	group := Group{ZarrFormat: 2}
	b, err := json.MarshalIndent(group, "", "  ")
	if err != nil {
		return err
	}

	for _, path := range []string{outputPath, joinKey(outputPath, "data.zarr"), joinKey(outputPath, "data.zarr/0")} {
		if err := store.Put(joinKey(path, string(MTGroup)), newReader(b)); err != nil {
			return fmt.Errorf("writing .zgroup at %s: %w", path, err)
		}
	}
	return nil
}
