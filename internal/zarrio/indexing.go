package zarrio

// chunkDimProjection is the mapping of one contiguous run of a single
// dimension's index space onto one backing chunk: which chunk the run
// falls in, the chunk-local sub-range it occupies, and where that
// sub-range starts relative to the caller's requested range.
//
// This is the chunk-file-level analogue of the tile-to-output decomposition
// spec.md §4.5 performs at the unit-pyramid level: both walk a half-open
// coordinate range and split it at chunk/tile boundaries.
type chunkDimProjection struct {
	ChunkIndex  int // which chunk along this dimension
	ChunkStart  int // inclusive start, chunk-local coordinates
	ChunkStop   int // exclusive stop, chunk-local coordinates
	OutputStart int // offset of this run's start relative to the request's own origin
}

// projectAxis decomposes the half-open range [start, stop) of one dimension
// into the ordered list of chunks it touches, assuming chunks of length
// chunkLen starting at 0. A non-positive chunkLen or an empty range yields
// a nil result.
func projectAxis(start, stop, chunkLen int) []chunkDimProjection {
	if chunkLen <= 0 || stop <= start {
		return nil
	}

	var projections []chunkDimProjection
	pos := start
	for pos < stop {
		chunkIndex := pos / chunkLen
		chunkLocalStart := pos - chunkIndex*chunkLen
		take := minInt((chunkIndex+1)*chunkLen-pos, stop-pos)

		projections = append(projections, chunkDimProjection{
			ChunkIndex:  chunkIndex,
			ChunkStart:  chunkLocalStart,
			ChunkStop:   chunkLocalStart + take,
			OutputStart: pos - start,
		})
		pos += take
	}
	return projections
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
