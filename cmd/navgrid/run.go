package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/banshee-data/navgrid/internal/config"
	"github.com/banshee-data/navgrid/internal/fsutil"
	"github.com/banshee-data/navgrid/internal/grid"
	"github.com/banshee-data/navgrid/internal/occmap"
	"github.com/banshee-data/navgrid/internal/render"
	"github.com/banshee-data/navgrid/internal/semmap"
	"github.com/banshee-data/navgrid/internal/sim"
	"github.com/banshee-data/navgrid/internal/store"
	"github.com/banshee-data/navgrid/internal/version"
)

const (
	rosMapName  = "occ_map"
	htmlName    = "occ_map.html"
	programName = "navgrid"
)

// app holds the collaborators of one invocation so tests can swap the
// filesystem and simulator.
type app struct {
	fsys   fsutil.FileSystem
	opener func(cfg *config.Config, scene string) sim.Opener
	stdout io.Writer
	stderr io.Writer
}

func httpOpener(cfg *config.Config, scene string) sim.Opener {
	spec := sim.SceneSpec{
		Scene:        scene,
		ScenePath:    cfg.ScenePath(scene),
		SceneDataset: cfg.GetSceneDataset(),
	}
	return sim.HTTPOpener(cfg.GetSimulatorURL(), spec, cfg.GetSimulatorTimeout())
}

type options struct {
	configPath string
	dbPath     string
	ros        bool
	html       bool
	list       bool
	logLevel   string
	logFormat  string
	version    bool

	overrides *config.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{overrides: &config.Config{}}
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON config file (see "+config.DefaultConfigPath+")")
	scene := fs.String("scene", "", "Scene id to build, e.g. 17DRP5sb8fy")
	height := fs.Float64("height", 0, "Sample height (y) of every navigability query")
	folder := fs.String("folder", "", "Semantic map folder; outputs are written next to the input")
	simURL := fs.String("sim", "", "Base URL of the simulator sidecar")
	fs.StringVar(&o.dbPath, "db", "", "Optional SQLite catalog path")
	fs.BoolVar(&o.ros, "ros", false, "Also write a ROS map_server png/yaml pair")
	fs.BoolVar(&o.html, "html", false, "Also write an interactive HTML view")
	fs.BoolVar(&o.list, "list", false, "List the records in the -db catalog and exit")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", "console", "Log format: console or json")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	// Only flags given on the command line override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scene":
			o.overrides.Scene = config.String(*scene)
		case "height":
			o.overrides.SampleHeight = config.Float64(*height)
		case "folder":
			o.overrides.SemanticMapFolder = config.String(*folder)
		case "sim":
			o.overrides.SimulatorURL = config.String(*simURL)
		}
	})
	return o, nil
}

func newLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console", "":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		ec.ConsoleSeparator = "  "
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core), nil
}

func (a *app) loadConfig(o *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		fileCfg, err := config.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	cfg.Merge(o.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	o, err := parseFlags(args, a.stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if o.version {
		fmt.Fprintln(a.stdout, version.String(programName))
		return nil
	}

	logger, err := newLogger(o.logLevel, o.logFormat, a.stderr)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	sim.SetLogger(logger)
	occmap.SetLogger(logger)
	store.SetLogger(logger)

	if o.list {
		return a.list(ctx, o.dbPath)
	}

	cfg, err := a.loadConfig(o)
	if err != nil {
		return err
	}
	scene := cfg.GetScene()
	if scene == "" {
		return fmt.Errorf("no scene given: set -scene or \"scene\" in the config file")
	}

	return a.build(ctx, logger, cfg, o)
}

func (a *app) build(ctx context.Context, logger *zap.Logger, cfg *config.Config, o *options) error {
	start := time.Now()
	scene := cfg.GetScene()
	folder := cfg.GetSemanticMapFolder()
	sceneDir := filepath.Join(folder, scene)
	log := logger.With(zap.String("scene", scene))

	meta, err := semmap.Read(a.fsys, semmap.Path(folder, scene))
	if err != nil {
		return err
	}
	g, err := grid.NewWorldGrid(cfg.GetCellSize(), cfg.GetWorldSize())
	if err != nil {
		return err
	}
	b, err := occmap.NewBuilder(g, meta, occmap.Params{
		Scene:             scene,
		Height:            cfg.GetSampleHeight(),
		HeightTolerance:   cfg.GetHeightTolerance(),
		ProgressEveryRows: cfg.GetProgressEveryRows(),
	})
	if err != nil {
		return err
	}

	var rec *occmap.Record
	err = sim.Run(ctx, a.opener(cfg, scene), func(ctx context.Context, s sim.Simulator) error {
		var err error
		rec, err = b.Build(ctx, s)
		return err
	})
	if err != nil {
		return err
	}

	stores := store.Multi{store.NewFileStore(a.fsys, folder)}
	if o.dbPath != "" {
		db, err := store.OpenSQLite(o.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		stores = append(stores, db)
	}
	if err := stores.Save(ctx, rec); err != nil {
		return err
	}

	occ, err := rec.Grid()
	if err != nil {
		return err
	}
	imagePath := filepath.Join(sceneDir, cfg.GetImageName())
	if err := render.SaveOccupancyImage(a.fsys, occ, imagePath, render.ImageOptions{Title: scene}); err != nil {
		return err
	}
	outputs := []string{store.NewFileStore(a.fsys, folder).Path(scene), imagePath}

	if o.ros {
		yamlPath, err := render.WriteROSMap(a.fsys, occ, meta.CellSize, meta.PoseRange[0], meta.PoseRange[1], sceneDir, rosMapName)
		if err != nil {
			return err
		}
		back, _, err := render.ReadROSMap(a.fsys, yamlPath)
		if err != nil {
			return err
		}
		if !back.Equal(occ) {
			return fmt.Errorf("ROS map %s does not read back to the written occupancy", yamlPath)
		}
		outputs = append(outputs, yamlPath)
	}

	if o.html {
		htmlPath := filepath.Join(sceneDir, htmlName)
		f, err := a.fsys.Create(htmlPath)
		if err != nil {
			return fmt.Errorf("failed to create html view: %w", err)
		}
		if err := render.WriteHTML(f, occ, scene); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write html view: %w", err)
		}
		outputs = append(outputs, htmlPath)
	}

	stats := b.Stats()
	log.Info("occupancy map built",
		zap.String("run_id", rec.RunID),
		zap.Int("rows", rec.Rows),
		zap.Int("cols", rec.Cols),
		zap.Int("navigable", rec.NavigableCount),
		zap.Int("queries", stats.Queries),
		zap.Duration("elapsed", time.Since(start)),
		zap.Strings("outputs", outputs),
	)
	return nil
}

func (a *app) list(ctx context.Context, dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("-list needs -db")
	}
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	summaries, err := db.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		fmt.Fprintf(a.stdout, "%s\t%s\t%dx%d\t%d navigable\theight=%.3f\tcell=%.3f\t%s\n",
			s.Scene, s.RunID, s.Cols, s.Rows, s.NavigableCount, s.Height, s.CellSize,
			time.Unix(0, s.CreatedUnixNanos).UTC().Format(time.RFC3339))
	}
	return nil
}
