package zarrio

import "encoding/json"

// ReadMultiscaleLevels reads the OME-Zarr "multiscales" attribute document
// at dataZattrsPath and returns the declared dataset paths (pyramid level
// identifiers), in the order the document lists them. This is the half of
// spec.md §4.1's introspect(path) that enumerates a unit pyramid's level
// set by reading its sidecar descriptor.
func ReadMultiscaleLevels(store Store, dataZattrsPath string) ([]string, error) {
	f, err := store.Get(dataZattrsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc plateAttributes
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Multiscales) == 0 {
		return nil, nil
	}

	levels := make([]string, 0, len(doc.Multiscales[0].Datasets))
	for _, ds := range doc.Multiscales[0].Datasets {
		levels = append(levels, ds.Path)
	}
	return levels, nil
}
