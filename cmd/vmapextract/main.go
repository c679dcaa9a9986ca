// vmapextract compiles client model geometry into collision files for the
// map server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vmap/internal/config"
	"github.com/Faultbox/midgard-vmap/internal/export"
	"github.com/Faultbox/midgard-vmap/internal/logger"
	"github.com/Faultbox/midgard-vmap/internal/vmap"
	"github.com/Faultbox/midgard-vmap/pkg/archive"
	"github.com/Faultbox/midgard-vmap/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "extract", "x":
		err = cmdExtract(args)
	case "tiles":
		err = cmdTiles(args)
	case "inspect", "info":
		err = cmdInspect(args)
	case "gltf":
		err = cmdGLTF(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`vmapextract - collision geometry extractor

Usage:
  vmapextract <command> [options]

Commands:
  extract [flags]                    Compile geometry and tile directories
  tiles [flags]                      List placement streams of configured maps
  inspect <file>                     Describe a .vmo, .vdir or summary.yaml file
  gltf [-geometry dir] <file> [out]  Convert a .vmo or .vdir file to .glb

Shared flags:
  -config path   config file (default ./vmap.yaml)
  -grf path      GRF archive, repeatable
  -dir path      loose data directory, repeatable
  -map id:name   map to extract, repeatable
  -out dir       output directory
  -workers n     tile workers (0 = one per CPU)
  -debug         debug logging
  -log path      also log to a rotating file

Examples:
  vmapextract extract -grf data.grf -map 0:prontera -map 1:geffen -out vmaps
  vmapextract inspect vmaps/dir/000_30_31.vdir
  vmapextract gltf vmaps/world_models_tree.vmo tree.glb`)
}

// setup parses the shared flags and loads the config.
func setup(name string, args []string) (*config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	return cfg, nil
}

func openSource(cfg *config.Config) (*archive.Multi, error) {
	src, err := archive.Open(cfg.Data.GRFPaths, cfg.Data.Dirs)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("data sources opened",
		zap.Strings("grf", cfg.Data.GRFPaths),
		zap.Strings("dirs", cfg.Data.Dirs),
		zap.Int("sources", src.Len()))
	return src, nil
}

func cmdExtract(args []string) error {
	cfg, err := setup("extract", args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Extract.Maps) == 0 {
		return fmt.Errorf("no maps configured, pass -map id:name or set extract.maps")
	}

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	tiles := vmap.DiscoverTiles(src, cfg.Extract.Maps)
	if len(tiles) == 0 {
		return fmt.Errorf("no placement streams found for %d maps", len(cfg.Extract.Maps))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := vmap.NewRunContext(src, cfg.Output.Dir, logger.Log.Named("vmap"))
	sum := vmap.Run(ctx, rc, tiles, cfg.Extract.Workers)

	if cfg.Output.Report {
		report := filepath.Join(cfg.Output.Dir, vmap.SummaryFile)
		if err := sum.WriteReport(report); err != nil {
			return err
		}
		logger.Log.Info("summary written", zap.String("path", report))
	}

	fmt.Printf("Run:        %s\n", sum.RunID)
	fmt.Printf("Tiles:      %d ok, %d failed\n", sum.TilesOK, sum.TilesFailed)
	fmt.Printf("Models:     %d compiled, %d failed\n", sum.ModelsCompiled, sum.ModelsFailed)
	fmt.Printf("Placements: %d written, %d skipped\n", sum.PlacementsWritten, sum.PlacementsSkipped)
	fmt.Printf("Duration:   %s\n", sum.Duration)

	if sum.Canceled {
		return fmt.Errorf("interrupted")
	}
	if sum.TilesFailed > 0 {
		return fmt.Errorf("%d tiles failed", sum.TilesFailed)
	}
	return nil
}

func cmdTiles(args []string) error {
	cfg, err := setup("tiles", args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	tiles := vmap.DiscoverTiles(src, cfg.Extract.Maps)
	for _, k := range tiles {
		fmt.Printf("%-24s %-20s %s\n", k.String(), k.DirectoryFileName(), k.StreamPath())
	}
	fmt.Printf("\n%d tiles in %d maps\n", len(tiles), len(cfg.Extract.Maps))
	return nil
}

func cmdInspect(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vmapextract inspect <file.vmo|file.vdir|summary.yaml>")
	}
	path := args[0]

	switch strings.ToLower(filepath.Ext(path)) {
	case formats.GeometryExt:
		g, err := formats.ReadGeometryFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("Geometry:  %s\n", path)
		fmt.Printf("Bounds:    %v .. %v\n", g.BoundingBox.Min, g.BoundingBox.Max)
		fmt.Printf("Vertices:  %d\n", len(g.Vertices))
		fmt.Printf("Triangles: %d\n", g.TriangleCount())
		fmt.Printf("Bounding:  %d vertices, %d triangles\n", len(g.BoundingVertices), len(g.BoundingIndices)/3)

	case formats.DirectoryExt:
		d, err := formats.ReadDirectoryFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("Directory: map %d tile %d,%d, %d placements\n", d.MapID, d.TileX, d.TileY, len(d.Records))
		for i, r := range d.Records {
			fmt.Printf("  %4d ref=%-8d %-18s scale=%.3f pos=%v rot=%v %s\n",
				i, r.ModelRef, r.Flags, r.ScaleFactor(), r.Position, r.Rotation, r.Name)
		}

	case ".yaml", ".yml":
		s, err := vmap.ReadReport(path)
		if err != nil {
			return err
		}
		fmt.Printf("Run %s (%s)\n", s.RunID, s.Duration)
		fmt.Printf("Tiles: %d ok, %d failed; models: %d compiled, %d failed\n",
			s.TilesOK, s.TilesFailed, s.ModelsCompiled, s.ModelsFailed)
		for _, f := range s.Failures {
			fmt.Printf("  model %-11s %s: %s\n", f.Kind, f.Path, f.Error)
		}
		for _, f := range s.TileFailures {
			fmt.Printf("  tile  %-11s %s: %s\n", f.Kind, f.Tile, f.Error)
		}

	default:
		return fmt.Errorf("unknown file type: %s", path)
	}
	return nil
}

func cmdGLTF(args []string) error {
	fs := flag.NewFlagSet("gltf", flag.ExitOnError)
	geometryDir := fs.String("geometry", "", "Directory holding .vmo files (default: parent of the .vdir directory)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vmapextract gltf [-geometry dir] <file.vmo|file.vdir> [out.glb]")
	}
	in := fs.Arg(0)
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".glb"
	if fs.NArg() > 1 {
		out = fs.Arg(1)
	}

	var (
		doc *gltf.Document
		err error
	)
	switch strings.ToLower(filepath.Ext(in)) {
	case formats.GeometryExt:
		g, rerr := formats.ReadGeometryFile(in)
		if rerr != nil {
			return rerr
		}
		doc, err = export.GeometryToGLTF(g, strings.TrimSuffix(filepath.Base(in), formats.GeometryExt))

	case formats.DirectoryExt:
		dir, rerr := formats.ReadDirectoryFile(in)
		if rerr != nil {
			return rerr
		}
		root := *geometryDir
		if root == "" {
			root = filepath.Dir(filepath.Dir(in))
		}
		doc, err = export.DirectoryToGLTF(dir, func(name string) (*formats.Geometry, error) {
			return formats.ReadGeometryFile(filepath.Join(root, name))
		})

	default:
		return fmt.Errorf("unknown file type: %s", in)
	}
	if err != nil {
		return err
	}
	if err := export.SaveBinary(out, doc); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}
