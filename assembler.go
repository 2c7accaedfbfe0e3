package argolid

import (
	"fmt"

	"github.com/r2dliu/argolid/internal/threadpool"
	"github.com/r2dliu/argolid/internal/zarrio"
)

// chunkAssembler is C5, the core algorithm of spec.md §4.5: given an
// output chunk coordinate it computes the set of contributing source
// rectangles, reads them in parallel, and assembles a contiguous buffer
// before writing it into the plate array.
type chunkAssembler struct {
	pool        *threadpool.Pool
	registry    *sourceRegistry
	composition *CompositionMap
	geometry    *PlateGeometry
	outputs     *outputArrayManager
	cache       *materializationCache
	elemWidth   int
	chunkEdge   int
}

// Materialize implements write_chunk's core work once the facade has
// confirmed it is Active. It is a no-op if (level, channel, yChunk,
// xChunk) was already recorded in the materialization cache (spec.md §8
// property 2, Idempotence).
func (a *chunkAssembler) Materialize(level, channel, yChunk, xChunk int) error {
	key := chunkKey{Level: level, Channel: channel, YChunk: yChunk, XChunk: xChunk}
	if a.cache.Has(key) {
		return nil
	}

	if !a.geometry.HasLevel(level) {
		return newError(KindUnknownLevel, "level %d is not one of the discovered levels %v", level, a.geometry.Levels())
	}
	if channel < 0 || channel >= a.geometry.Channels {
		return newError(KindUnknownChannel, "channel %d is outside [0, %d)", channel, a.geometry.Channels)
	}
	if yChunk < 0 || xChunk < 0 {
		return newError(KindOutOfRange, "chunk coordinate (%d, %d) is negative", yChunk, xChunk)
	}

	plateShape, _ := a.geometry.PlateShape(level)
	plateH, plateW := plateShape[zarrio.AxisY], plateShape[zarrio.AxisX]

	y0 := yChunk * a.chunkEdge
	x0 := xChunk * a.chunkEdge
	// half-open range validated against the full extent, tightening the
	// C++ original's strict "y_index > plate_shape[3]/CHUNK_SIZE" check,
	// which silently accepted the index one past the last partial chunk.
	if y0 < 0 || y0 >= plateH || x0 < 0 || x0 >= plateW {
		return newError(KindOutOfRange, "chunk (%d, %d) at level %d is outside the plate extent (%d, %d)", yChunk, xChunk, level, plateH, plateW)
	}

	y1 := minInt(y0+a.chunkEdge, plateH)
	x1 := minInt(x0+a.chunkEdge, plateW)

	tileShape, _ := a.geometry.TileShape(level)
	buf := make([]byte, (y1-y0)*(x1-x0)*a.elemWidth)

	if err := a.scheduleTileReads(buf, level, channel, y0, y1, x0, x1, tileShape); err != nil {
		return err
	}
	if err := a.pool.Wait(); err != nil {
		// per-tile task failures fail the enclosing request and are not
		// recorded — spec.md §7: the caller may retry.
		return wrapError(KindIOFailure, err, "assembling chunk (level=%d, channel=%d, y=%d, x=%d)", level, channel, yChunk, xChunk)
	}

	outArr, ok := a.outputs.Handle(level)
	if !ok {
		return newError(KindIOFailure, "no output array handle for level %d", level)
	}
	writeRegion := zarrio.Region{C: channel, Y0: y0, Y1: y1, X0: x0, X1: x1}
	if err := outArr.WriteRegion(buf, writeRegion); err != nil {
		return wrapError(KindIOFailure, err, "writing chunk (level=%d, channel=%d, y=%d, x=%d)", level, channel, yChunk, xChunk)
	}

	a.cache.Record(key)
	return nil
}

// scheduleTileReads performs the row/col walk of spec.md §4.5: it
// decomposes the output region [y0,y1)x[x0,x1) into the unit-pyramid
// tiles it overlaps and spawns one task per tile against the pool. It
// returns once every task has been spawned (not completed); the caller
// must still call a.pool.Wait().
func (a *chunkAssembler) scheduleTileReads(buf []byte, level, channel, y0, y1, x0, x1 int, tile TileShape) error {
	width := x1 - x0

	for posY := y0; posY < y1; {
		row := posY / tile.Height
		srcY0 := posY - row*tile.Height
		takeY := minInt((row+1)*tile.Height-posY, y1-posY)
		srcY1 := srcY0 + takeY
		dstY := posY - y0

		for posX := x0; posX < x1; {
			col := posX / tile.Width
			srcX0 := posX - col*tile.Width
			takeX := minInt((col+1)*tile.Width-posX, x1-posX)
			srcX1 := srcX0 + takeX
			dstX := posX - x0

			row, col := row, col
			srcY0, srcY1, srcX0, srcX1 := srcY0, srcY1, srcX0, srcX1
			dstY, dstX, takeY, takeX := dstY, dstX, takeY, takeX

			a.pool.Spawn(func() error {
				return a.assembleTile(buf, level, channel, row, col, srcY0, srcY1, srcX0, srcX1, dstY, dstX, width, takeY, takeX)
			})

			posX += takeX
		}
		posY += takeY
	}
	return nil
}

// assembleTile is the per-tile task of spec.md §4.5: obtain the reader for
// the source at (col, row, channel), read the source rectangle, and
// row-wise copy it into the destination offset within buf.
func (a *chunkAssembler) assembleTile(buf []byte, level, channel, row, col, srcY0, srcY1, srcX0, srcX1, dstY, dstX, assemblyWidth, takeY, takeX int) error {
	path, ok := a.composition.SourceAt(col, row, channel)
	if !ok {
		return fmt.Errorf("composition map has no source at (col=%d, row=%d, channel=%d)", col, row, channel)
	}

	reader, err := a.registry.Open(path, level)
	if err != nil {
		return err
	}

	tileBuf := make([]byte, takeY*takeX*a.elemWidth)
	region := zarrio.Region{C: channel, Y0: srcY0, Y1: srcY1, X0: srcX0, X1: srcX1}
	if err := reader.ReadRegion(tileBuf, region); err != nil {
		return fmt.Errorf("reading source tile at %s level %d: %w", path, level, err)
	}

	rowBytes := takeX * a.elemWidth
	for i := 0; i < takeY; i++ {
		srcOff := i * rowBytes
		dstOff := (dstY+i)*assemblyWidth*a.elemWidth + dstX*a.elemWidth
		copy(buf[dstOff:dstOff+rowBytes], tileBuf[srcOff:srcOff+rowBytes])
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
