// Package argolid composes a grid of pre-existing multi-resolution tiled
// image pyramids ("unit pyramids") into one larger multi-resolution
// pyramid ("plate pyramid"), materializing each output chunk on demand
// into a chunked-array backing store.
package argolid

import (
	"fmt"

	"github.com/r2dliu/argolid/internal/threadpool"
	"github.com/r2dliu/argolid/internal/zarrio"
)

// ChunkEdge is the system-wide chunk edge S every plate array's fixed
// (1, 1, 1, S, S) chunk shape uses.
const ChunkEdge = 1024

// State names one of the Compositor's lifecycle states.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateReset
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateActive:
		return "Active"
	case StateReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// Compositor is C8, the public facade. Its zero value is not usable;
// construct with New.
type Compositor struct {
	store      zarrio.Store
	outputRoot string
	plateName  string
	poolSize   int

	state       State
	composition *CompositionMap
	geometry    *PlateGeometry
	dtypeCode   zarrio.Code
	plateDtype  zarrio.Dtype

	registry *sourceRegistry
	outputs  *outputArrayManager
	cache    *materializationCache
	sidecar  *sidecarEmitter
}

// New constructs a Compositor in the Uninitialized state, bound to the
// given store and rooted at "<outputRoot>/<plateName>". poolSize is the
// worker-pool size passed to internal/threadpool.New; 0 selects the host's
// default parallelism hint (spec.md §5).
func New(store zarrio.Store, outputRoot, plateName string, poolSize int) *Compositor {
	root := fmt.Sprintf("%s/%s", outputRoot, plateName)
	return &Compositor{
		store:      store,
		outputRoot: outputRoot,
		plateName:  plateName,
		poolSize:   poolSize,
		state:      StateUninitialized,
		registry:   newSourceRegistry(store),
		outputs:    newOutputArrayManager(store, root),
		cache:      newMaterializationCache(),
		sidecar:    newSidecarEmitter(store, root),
	}
}

// State reports the compositor's current lifecycle state.
func (c *Compositor) State() State { return c.state }

// SetComposition installs a new composition grid and transitions to
// Active from any prior state. It clears plate shapes, output handles,
// and the materialization cache before doing any work; a failure before
// the sidecar step leaves the facade Uninitialized-equivalent (spec.md §7).
// A sidecar failure is returned with the new composition installed and the
// facade Active.
func (c *Compositor) SetComposition(m map[GridCoord]string) error {
	composition, err := NewCompositionMap(m)
	if err != nil {
		c.resetInternalState()
		return err
	}

	c.resetInternalState()

	pool := threadpool.New(c.poolSize)
	paths := composition.DistinctPaths()
	infos := make([]*sourceInfo, len(paths))
	for i, p := range paths {
		i, p := i, p
		pool.Spawn(func() error {
			info, err := c.registry.Introspect(p)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return err
	}

	tileShapes, dtypeName, dtypeCode, err := reconcileSources(paths, infos)
	if err != nil {
		return err
	}

	plateDtype, err := zarrio.ChooseBaseDtype(dtypeCode)
	if err != nil {
		return wrapError(KindTypeMismatch, err, "choosing plate element type for %s", dtypeName)
	}

	geometry := ComputePlateGeometry(composition.Cols(), composition.Rows(), composition.Channels(), tileShapes)

	createPool := threadpool.New(c.poolSize)
	for _, level := range geometry.Levels() {
		level := level
		plateShape, _ := geometry.PlateShape(level)
		createPool.Spawn(func() error {
			return c.outputs.CreateLevel(level, plateShape, ChunkShape(ChunkEdge), plateDtype)
		})
	}
	if err := createPool.Wait(); err != nil {
		c.resetInternalState()
		_ = c.outputs.Reset()
		return err
	}

	if err := c.sidecar.WriteAll(mustPlateShape(geometry, 0), plateDtype.String(), geometry.PlateShapes()); err != nil {
		// sidecar failures are surfaced but do not roll back the output
		// arrays (spec.md §4.7, §7).
		c.composition = composition
		c.geometry = geometry
		c.dtypeCode = dtypeCode
		c.plateDtype = plateDtype
		c.state = StateActive
		return err
	}

	c.composition = composition
	c.geometry = geometry
	c.dtypeCode = dtypeCode
	c.plateDtype = plateDtype
	c.state = StateActive
	return nil
}

func mustPlateShape(g *PlateGeometry, level int) []int {
	if s, ok := g.PlateShape(level); ok {
		return s
	}
	levels := g.Levels()
	if len(levels) == 0 {
		return nil
	}
	s, _ := g.PlateShape(levels[0])
	return s
}

// reconcileSources checks that every discovered source agrees on level set,
// per-level tile shape, and element type, per spec.md §4.1's "the element
// type discovered at the first source is treated as authoritative;
// mismatches on subsequent sources are a configuration error".
func reconcileSources(paths []string, infos []*sourceInfo) (map[int]TileShape, string, zarrio.Code, error) {
	if len(infos) == 0 || infos[0] == nil {
		return nil, "", zarrio.CodeInvalid, newError(KindSourceUnavailable, "no sources to introspect")
	}

	first := infos[0]
	tileShapes := make(map[int]TileShape, len(first.TileShapes))
	for l, ts := range first.TileShapes {
		tileShapes[l] = ts
	}

	for i, info := range infos {
		if info == nil {
			return nil, "", zarrio.CodeInvalid, newError(KindSourceUnavailable, "introspection of %s produced no result", paths[i])
		}
		if info.DtypeCode != first.DtypeCode {
			return nil, "", zarrio.CodeInvalid, newError(KindTypeMismatch,
				"source %s has element type %s, expected %s (from %s)", paths[i], info.DtypeName, first.DtypeName, paths[0])
		}
		if len(info.Levels) != len(first.Levels) {
			return nil, "", zarrio.CodeInvalid, newError(KindGeometryMismatch,
				"source %s declares %d levels, expected %d (from %s)", paths[i], len(info.Levels), len(first.Levels), paths[0])
		}
		for l, ts := range info.TileShapes {
			want, ok := tileShapes[l]
			if !ok {
				return nil, "", zarrio.CodeInvalid, newError(KindGeometryMismatch,
					"source %s declares level %d, not present in %s", paths[i], l, paths[0])
			}
			if ts != want {
				return nil, "", zarrio.CodeInvalid, newError(KindGeometryMismatch,
					"source %s has tile shape %dx%d at level %d, expected %dx%d (from %s)",
					paths[i], ts.Height, ts.Width, l, want.Height, want.Width, paths[0])
			}
		}
	}

	return tileShapes, first.DtypeName, first.DtypeCode, nil
}

// WriteChunk materializes output chunk (level, channel, yChunk, xChunk),
// or does nothing if it was already materialized. Valid only in the
// Active state.
func (c *Compositor) WriteChunk(level, channel, yChunk, xChunk int) error {
	if c.state != StateActive {
		return newError(KindNotConfigured, "write_chunk called in state %s, expected Active", c.state)
	}

	assembler := &chunkAssembler{
		pool:        threadpool.New(c.poolSize),
		registry:    c.registry,
		composition: c.composition,
		geometry:    c.geometry,
		outputs:     c.outputs,
		cache:       c.cache,
		elemWidth:   c.dtypeCode.ByteWidth(),
		chunkEdge:   ChunkEdge,
	}
	return assembler.Materialize(level, channel, yChunk, xChunk)
}

// GetChunk is a read-through-cache alias over WriteChunk (supplementing
// the distilled spec, see SPEC_FULL.md): it materializes the chunk if
// necessary and reports whether this call was the one that did the work.
func (c *Compositor) GetChunk(level, channel, yChunk, xChunk int) (materialized bool, err error) {
	key := chunkKey{Level: level, Channel: channel, YChunk: yChunk, XChunk: xChunk}
	if c.state == StateActive && c.cache.Has(key) {
		return false, nil
	}
	if err := c.WriteChunk(level, channel, yChunk, xChunk); err != nil {
		return false, err
	}
	return true, nil
}

// ResetComposition tears down the current composition: deletes the output
// tree and clears the composition map, plate shapes, output handles, and
// materialization cache. Transitions to Reset.
func (c *Compositor) ResetComposition() error {
	err := c.outputs.Reset()
	c.resetInternalState()
	c.state = StateReset
	if err != nil {
		return err
	}
	return nil
}

func (c *Compositor) resetInternalState() {
	c.composition = nil
	c.geometry = nil
	c.dtypeCode = zarrio.CodeInvalid
	c.plateDtype = zarrio.Dtype{}
	c.outputs.Clear()
	c.cache = newMaterializationCache()
	c.state = StateUninitialized
}
