// Command ls-planetarium generates a 3D-printable planetarium dome: it fetches
// stars, projects them onto a hemisphere and writes an OpenSCAD scene whose
// perforations let light through where the stars are.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/term"

	"github.com/litescript/ls-planetarium/internal/config"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/logging"
	"github.com/litescript/ls-planetarium/internal/planetarium"
	"github.com/litescript/ls-planetarium/internal/ui"
	"github.com/litescript/ls-planetarium/internal/version"
)

// CLI flags; each one overrides the matching config key when set.
var (
	configPath    string
	source        string
	magLimit      float64
	names         string
	constellation string
	projKind      string
	fieldDeg      float64
	horizon       string
	zenithRA      float64
	zenithDec     float64
	rotationDeg   float64
	latDeg        float64
	lonDeg        float64
	obsTime       string
	radius        float64
	wall          float64
	mode          string
	primitive     string
	outPath       string
	publishURI    string
	allowEmpty    bool
	logLevel      string
	headless      bool
	showVersion   bool
)

func main() {
	flag.StringVar(&configPath, "config", "", "CUE config file")
	flag.StringVar(&source, "source", config.SourceGaia, "Star catalog (gaia, builtin)")
	flag.Float64Var(&magLimit, "mag", 6, "Faintest magnitude to include")
	flag.StringVar(&names, "names", "", "Comma-separated star names instead of a magnitude query")
	flag.StringVar(&constellation, "constellation", "", "Comma-separated star group names")
	flag.StringVar(&projKind, "projection", "equidistant", "Projection (equidistant, stereographic, orthographic, equal-area)")
	flag.Float64Var(&fieldDeg, "field", 180, "Angular radius of sky mapped onto the dome, degrees")
	flag.StringVar(&horizon, "horizon", "exclude", "Stars beyond the field (exclude, clip)")
	flag.Float64Var(&zenithRA, "zenith-ra", 0, "RA drawn at the dome top, degrees")
	flag.Float64Var(&zenithDec, "zenith-dec", 90, "Dec drawn at the dome top, degrees")
	flag.Float64Var(&rotationDeg, "rotation", 0, "Spin about the dome axis, degrees")
	flag.Float64Var(&latDeg, "lat", 0, "Observer latitude; sets the zenith to the sky overhead")
	flag.Float64Var(&lonDeg, "lon", 0, "Observer longitude, east positive")
	flag.StringVar(&obsTime, "time", "", "Observation time, RFC 3339 (default now)")
	flag.Float64Var(&radius, "radius", 150, "Dome outer radius, mm")
	flag.Float64Var(&wall, "wall", 3, "Shell wall thickness, mm")
	flag.StringVar(&mode, "mode", "subtract", "Star geometry (subtract, union)")
	flag.StringVar(&primitive, "primitive", "cylinder", "Star primitive (cylinder, cone, sphere)")
	flag.StringVar(&outPath, "out", "dome.scad", "Output OpenSCAD file")
	flag.StringVar(&publishURI, "publish", "", "Upload the scene to s3://bucket/prefix")
	flag.BoolVar(&allowEmpty, "allow-empty", false, "Write an empty dome when no stars match")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&headless, "headless", false, "Plain log output instead of the progress view (implied by -log-level debug)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("ls-planetarium %s\n", version.Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Output paths are resolved against the working directory
	displayPath := cfg.Output.Path
	outFS := osfs.New(".")
	if cfg.Output.Path != "" {
		absOut, err := filepath.Abs(cfg.Output.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		outFS = osfs.New(filepath.Dir(absOut))
		cfg.Output.Path = filepath.Base(absOut)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	// Debug logs stream to stderr as they happen, without the progress view
	showProgress := isTTY && !headless && logger.Level() > logging.LevelDebug

	var res planetarium.Result
	if showProgress {
		// Logs would tear the progress view; hold them until it exits
		var logBuf bytes.Buffer
		logger.SetOutput(&logBuf)

		stages := planetarium.Stages
		if cfg.Output.Publish == "" {
			stages = stages[:len(stages)-1]
		}
		res, err = ui.Run(ctx, "ls-planetarium", stages, func(ctx context.Context, rep planetarium.Reporter) (planetarium.Result, error) {
			return planetarium.New(cfg, outFS,
				planetarium.WithLogger(logger),
				planetarium.WithReporter(rep),
			).Run(ctx)
		})
		_, _ = os.Stderr.Write(logBuf.Bytes())
	} else {
		res, err = planetarium.New(cfg, outFS, planetarium.WithLogger(logger)).Run(ctx)
	}

	if err != nil {
		if errors.Is(err, ui.ErrInterrupted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}

	if res.OutputPath != "" {
		res.OutputPath = displayPath
	}
	if err := ui.WriteSummary(os.Stdout, res, isTTY); err != nil {
		logger.Error("write summary: %v", err)
	}
}

// loadConfig reads the config file if given and applies the flags that
// were set on the command line.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return cfg, err
		}
		cfg, err = config.Load(osfs.New(filepath.Dir(abs)), filepath.Base(abs))
		if err != nil {
			return cfg, err
		}
	}

	var observerSet bool
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Catalog.Source = source
		case "mag":
			cfg.Catalog.MagnitudeLimit = magLimit
		case "names":
			cfg.Catalog.Names = splitList(names)
		case "constellation":
			cfg.Catalog.Constellations = splitList(constellation)
		case "projection":
			cfg.Projection.Kind = projKind
		case "field":
			cfg.Projection.FieldDeg = fieldDeg
		case "horizon":
			cfg.Projection.Horizon = horizon
		case "zenith-ra":
			cfg.Projection.ZenithRA = zenithRA
		case "zenith-dec":
			cfg.Projection.ZenithDec = zenithDec
		case "rotation":
			cfg.Projection.RotationDeg = rotationDeg
		case "lat", "lon", "time":
			observerSet = true
		case "radius":
			cfg.Dome.Radius = radius
		case "wall":
			cfg.Dome.WallThickness = wall
		case "mode":
			cfg.Dome.Mode = mode
		case "primitive":
			cfg.Dome.Primitive = primitive
		case "out":
			cfg.Output.Path = outPath
		case "publish":
			cfg.Output.Publish = publishURI
		case "allow-empty":
			cfg.Catalog.AllowEmpty = allowEmpty
		case "log-level":
			cfg.LogLevel = logLevel
		}
	})

	if observerSet {
		obs := config.ObserverConfig{Lat: latDeg, Lon: lonDeg, Time: obsTime}
		if cfg.Projection.Observer != nil {
			obs = *cfg.Projection.Observer
			flag.Visit(func(f *flag.Flag) {
				switch f.Name {
				case "lat":
					obs.Lat = latDeg
				case "lon":
					obs.Lon = lonDeg
				case "time":
					obs.Time = obsTime
				}
			})
		}
		if obs.Time == "" {
			obs.Time = time.Now().UTC().Format(time.RFC3339)
		}
		cfg.Projection.Observer = &obs
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// exitCode maps a failure to the process exit status: 2 for bad input,
// 1 for everything else.
func exitCode(err error) int {
	if errs.CodeOf(err) == errs.CodeInvalidProjectionConfig {
		return 2
	}
	return 1
}
