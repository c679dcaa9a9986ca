package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-vmap/internal/vmap"
)

// Flags are the command-line overrides shared by the subcommands.
type Flags struct {
	Config  string
	Debug   bool
	Out     string
	Workers int
	GRF     stringList
	Dirs    stringList
	Maps    mapList
	Log     string
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{Workers: -1}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Out, "out", "", "Output directory")
	fs.IntVar(&f.Workers, "workers", -1, "Number of tile workers (0 = one per CPU)")
	fs.Var(&f.GRF, "grf", "GRF archive to read (repeatable, replaces configured archives)")
	fs.Var(&f.Dirs, "dir", "Loose data directory (repeatable, replaces configured dirs)")
	fs.Var(&f.Maps, "map", "Map to extract as id:name (repeatable, replaces configured maps)")
	fs.StringVar(&f.Log, "log", "", "Log file path")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Out != "" {
		cfg.Output.Dir = f.Out
	}
	if f.Workers >= 0 {
		cfg.Extract.Workers = f.Workers
	}
	if len(f.GRF) > 0 {
		cfg.Data.GRFPaths = append([]string(nil), f.GRF...)
	}
	if len(f.Dirs) > 0 {
		cfg.Data.Dirs = append([]string(nil), f.Dirs...)
		if len(f.GRF) == 0 {
			cfg.Data.GRFPaths = nil
		}
	}
	if len(f.Maps) > 0 {
		cfg.Extract.Maps = append([]vmap.MapEntry(nil), f.Maps...)
	}
	if f.Log != "" {
		cfg.Logging.LogFile = f.Log
	}
}

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type mapList []vmap.MapEntry

func (l *mapList) String() string {
	parts := make([]string, len(*l))
	for i, m := range *l {
		parts[i] = fmt.Sprintf("%d:%s", m.ID, m.Name)
	}
	return strings.Join(parts, ",")
}

func (l *mapList) Set(v string) error {
	m, err := ParseMapEntry(v)
	if err != nil {
		return err
	}
	*l = append(*l, m)
	return nil
}

// ParseMapEntry parses "id:name".
func ParseMapEntry(s string) (vmap.MapEntry, error) {
	idStr, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return vmap.MapEntry{}, fmt.Errorf("map %q: want id:name", s)
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return vmap.MapEntry{}, fmt.Errorf("map %q: bad id: %w", s, err)
	}
	return vmap.MapEntry{ID: uint32(id), Name: name}, nil
}
