package argolid

import "sort"

// GridCoord is a (col, row, channel) key into a composition map — spec.md
// §3's "composition grid" coordinate.
type GridCoord struct {
	Col     int
	Row     int
	Channel int
}

// CompositionMap holds the (col, row, channel) -> unit-pyramid path
// mapping of spec.md §4.4. It is replaced wholesale by
// Compositor.SetComposition and read-only for the rest of that
// composition's lifetime.
type CompositionMap struct {
	paths map[GridCoord]string
	cols  int
	rows  int
	chans int
}

// NewCompositionMap validates m for rectangular density over its own
// bounding box — the check spec.md §9 calls "not performed by the source...
// this specification makes mandatory" — and returns a CompositionMap ready
// to query.
func NewCompositionMap(m map[GridCoord]string) (*CompositionMap, error) {
	if len(m) == 0 {
		return nil, newError(KindNotConfigured, "composition map is empty")
	}

	maxCol, maxRow, maxChan := 0, 0, 0
	for coord := range m {
		if coord.Col > maxCol {
			maxCol = coord.Col
		}
		if coord.Row > maxRow {
			maxRow = coord.Row
		}
		if coord.Channel > maxChan {
			maxChan = coord.Channel
		}
	}
	cols, rows, chans := maxCol+1, maxRow+1, maxChan+1

	if len(m) != cols*rows*chans {
		missing := firstMissingCoord(m, cols, rows, chans)
		return nil, newError(KindGeometryMismatch,
			"composition map is sparse: bounding box is %dx%dx%d (cols x rows x channels) "+
				"but only %d of %d cells are populated, e.g. missing (col=%d, row=%d, channel=%d)",
			cols, rows, chans, len(m), cols*rows*chans, missing.Col, missing.Row, missing.Channel)
	}

	cm := &CompositionMap{
		paths: make(map[GridCoord]string, len(m)),
		cols:  cols,
		rows:  rows,
		chans: chans,
	}
	for k, v := range m {
		cm.paths[k] = v
	}
	return cm, nil
}

func firstMissingCoord(m map[GridCoord]string, cols, rows, chans int) GridCoord {
	for c := 0; c < chans; c++ {
		for r := 0; r < rows; r++ {
			for k := 0; k < cols; k++ {
				coord := GridCoord{Col: k, Row: r, Channel: c}
				if _, ok := m[coord]; !ok {
					return coord
				}
			}
		}
	}
	return GridCoord{}
}

// SourceAt answers C4's "which source contributes to this output region?"
// query. Undefined (ok=false) for coordinates outside the grid's bounding
// rectangle.
func (cm *CompositionMap) SourceAt(col, row, channel int) (path string, ok bool) {
	path, ok = cm.paths[GridCoord{Col: col, Row: row, Channel: channel}]
	return path, ok
}

// Cols, Rows, Channels return K, R, C respectively (spec.md §3).
func (cm *CompositionMap) Cols() int     { return cm.cols }
func (cm *CompositionMap) Rows() int     { return cm.rows }
func (cm *CompositionMap) Channels() int { return cm.chans }

// DistinctPaths returns the sorted, de-duplicated set of unit-pyramid
// paths referenced anywhere in the map — the set Compositor.SetComposition
// introspects concurrently in C1.
func (cm *CompositionMap) DistinctPaths() []string {
	seen := make(map[string]struct{}, len(cm.paths))
	for _, p := range cm.paths {
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
