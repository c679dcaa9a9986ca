package vmap

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vmap/pkg/archive"
	"github.com/Faultbox/midgard-vmap/pkg/formats"
	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// ModelInstance is one placement in server space.
type ModelInstance struct {
	ModelRef uint32    // uniqueId from the stream
	Model    string    // normalized model filename
	Position math.Vec3 // server axis order
	Rotation math.Vec3 // Euler degrees, as stored
	Scale    uint16    // fixed point, formats.ScaleUnit = 1.0
}

// NewModelInstance converts a raw placement record.
func NewModelInstance(rec formats.PlacementRecord, model string) ModelInstance {
	return ModelInstance{
		ModelRef: rec.UniqueID,
		Model:    ModelKey(model),
		Position: math.PlacementAxes.Apply(rec.ClientPosition()),
		Rotation: math.FromArray(rec.Rotation),
		Scale:    rec.Scale,
	}
}

// ScaleFactor decodes the fixed-point scale.
func (mi ModelInstance) ScaleFactor() float32 {
	return float32(mi.Scale) / formats.ScaleUnit
}

// Record builds the directory record of the instance from its compiled
// geometry.
func (mi ModelInstance) Record(info GeometryInfo, worldSpawn bool) formats.DirectoryRecord {
	rec := formats.DirectoryRecord{
		Flags:    formats.FlagM2,
		ModelRef: mi.ModelRef,
		Scale:    mi.Scale,
		Position: mi.Position,
		Rotation: mi.Rotation,
		Name:     info.Name,
	}
	if worldSpawn {
		rec.Flags |= formats.FlagWorldSpawn
	}
	rec.Bound = WorldBounds(info.Bounds, InstanceTransform(mi.Position, mi.Rotation, mi.ScaleFactor()))
	rec.Flags |= formats.FlagHasBound
	return rec
}

// TileResult reports what one tile extraction did.
type TileResult struct {
	Key        TileKey
	Path       string // directory file, empty when the tile failed
	Placements int    // records written
	Skipped    int    // placements dropped because their model failed
	Compiled   int    // geometry files created by this tile
}

// ExtractTile reads the tile's placement stream from the archive and writes
// its directory file.
func ExtractTile(rc *RunContext, key TileKey) (TileResult, error) {
	streamPath := key.StreamPath()
	data, err := rc.Source.Read(streamPath)
	if err != nil {
		if archive.IsNotFound(err) {
			return TileResult{Key: key}, errors.Wrapf(ErrResolution, "placement stream %s: %v", streamPath, err)
		}
		return TileResult{Key: key}, errors.Wrapf(ErrMalformedInput, "placement stream %s: %v", streamPath, err)
	}
	return ExtractPlacements(rc, key, data)
}

// ExtractPlacements processes one tile's placement stream.
//
// One directory record is buffered per placement in stream order. Placements
// whose model cannot be compiled are skipped. The directory is written once,
// atomically, after the last record was read. A stream whose length does not
// match its declared count, or a malformed stream, fails the tile and writes
// nothing.
func ExtractPlacements(rc *RunContext, key TileKey, data []byte) (TileResult, error) {
	res := TileResult{Key: key}
	log := rc.Log.With(zap.Stringer("tile", key))

	pr, err := formats.NewPlacementReader(data)
	if err != nil {
		return res, classifyStreamError(err, "header")
	}

	dir := formats.Directory{MapID: key.MapID, TileX: key.X, TileY: key.Y}
	dir.Records = make([]formats.DirectoryRecord, 0, min(pr.Count(), 4096))

	for pr.Remaining() > 0 {
		rec, err := pr.Next()
		if err != nil {
			return res, classifyStreamError(err, "instance")
		}
		name, err := pr.ModelName(rec)
		if err != nil {
			return res, classifyStreamError(err, "instance")
		}

		inst := NewModelInstance(rec, name)
		info, created, err := EnsureGeometry(rc, inst.Model)
		if err != nil {
			res.Skipped++
			log.Debug("skipping placement",
				zap.Uint32("ref", inst.ModelRef),
				zap.String("model", inst.Model),
				zap.Stringer("kind", Kind(err)),
				zap.Error(err))
			continue
		}
		if created {
			res.Compiled++
		}
		dir.Records = append(dir.Records, inst.Record(info, key.IsWorldSpawn()))
	}
	if err := pr.Finish(); err != nil {
		return res, classifyStreamError(err, "instance count")
	}

	out, err := dir.MarshalBinary()
	if err != nil {
		return res, errors.Wrapf(ErrMalformedInput, "encoding directory: %v", err)
	}
	dest := rc.DirectoryPath(key)
	if err := writeFileAtomic(dest, out); err != nil {
		return res, errors.Wrapf(ErrWriteFailure, "directory %s: %v", dest, err)
	}

	res.Path = dest
	res.Placements = len(dir.Records)
	log.Debug("wrote tile directory",
		zap.Int("placements", res.Placements),
		zap.Int("skipped", res.Skipped),
		zap.Int("compiled", res.Compiled))
	return res, nil
}

func classifyStreamError(err error, stage string) error {
	if errors.Is(err, formats.ErrTruncatedPlacementData) || errors.Is(err, formats.ErrPlacementCountMismatch) {
		return errors.Wrapf(ErrTruncatedInput, "%s: %v", stage, err)
	}
	return errors.Wrapf(ErrMalformedInput, "%s: %v", stage, err)
}
