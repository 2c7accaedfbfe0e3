package argolid

// TileShape is the per-level (H, W) of every unit pyramid in a
// composition — spec.md §3's "per-level tile shape".
type TileShape struct {
	Height int
	Width  int
}

// PlateGeometry is the immutable snapshot spec.md §4.2 derives from a
// composition grid and the discovered per-level tile shapes: C2 computes
// it once per set_composition and C3/C5/C7 consume it read-only for the
// rest of that composition's lifetime.
type PlateGeometry struct {
	Cols     int
	Rows     int
	Channels int

	tileShapes map[int]TileShape
	plateShape map[int][]int
}

// ComputePlateGeometry is the pure function of spec.md §4.2: plate shape
// at level L is (1, C, 1, R*H_L, K*W_L).
func ComputePlateGeometry(cols, rows, channels int, tileShapes map[int]TileShape) *PlateGeometry {
	g := &PlateGeometry{
		Cols:       cols,
		Rows:       rows,
		Channels:   channels,
		tileShapes: make(map[int]TileShape, len(tileShapes)),
		plateShape: make(map[int][]int, len(tileShapes)),
	}

	for level, ts := range tileShapes {
		g.tileShapes[level] = ts
		g.plateShape[level] = []int{
			1,
			channels,
			1,
			rows * ts.Height,
			cols * ts.Width,
		}
	}
	return g
}

// Levels returns the discovered pyramid levels, in no particular order.
func (g *PlateGeometry) Levels() []int {
	levels := make([]int, 0, len(g.tileShapes))
	for l := range g.tileShapes {
		levels = append(levels, l)
	}
	return levels
}

// HasLevel reports whether level is one of the discovered levels.
func (g *PlateGeometry) HasLevel(level int) bool {
	_, ok := g.tileShapes[level]
	return ok
}

// TileShape returns the unit-pyramid tile shape at level.
func (g *PlateGeometry) TileShape(level int) (TileShape, bool) {
	ts, ok := g.tileShapes[level]
	return ts, ok
}

// PlateShape returns the 5-D plate shape (1, C, 1, R*H_L, K*W_L) at level.
func (g *PlateGeometry) PlateShape(level int) ([]int, bool) {
	s, ok := g.plateShape[level]
	return s, ok
}

// PlateShapes returns a copy of the full level-to-plate-shape map, for
// handing to the sidecar emitter (spec.md §4.7).
func (g *PlateGeometry) PlateShapes() map[int][]int {
	out := make(map[int][]int, len(g.plateShape))
	for l, s := range g.plateShape {
		out[l] = append([]int(nil), s...)
	}
	return out
}

// ChunkShape is the fixed (1, 1, 1, S, S) chunk shape every plate array
// shares, S being the system-wide chunk edge of spec.md §3.
func ChunkShape(edge int) []int {
	return []int{1, 1, 1, edge, edge}
}
