// Command oxy-toon renders the toon desert scene, either in a window on WebGPU or headless on the
// software device with the last frame written to a PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-toon/engine"
	"github.com/Carmen-Shannon/oxy-toon/engine/compositor"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/soft"
	wgpudev "github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/wgpu"
	"github.com/Carmen-Shannon/oxy-toon/engine/scene"
	"github.com/Carmen-Shannon/oxy-toon/engine/window"
)

type options struct {
	width, height int
	headless      bool
	frames        int
	out           string
	scenePath     string
	vsync         bool
	logLevel      slog.Level
	profile       bool
	fps           float64
	inspect       float64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: opts.logLevel}))
	engine.SetLogger(logger)

	if err := render(opts, logger); err != nil {
		logger.Error("oxy-toon failed", "err", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("oxy-toon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.width, "width", 1280, "client width in pixels")
	fs.IntVar(&opts.height, "height", 720, "client height in pixels")
	fs.BoolVar(&opts.headless, "headless", false, "render on the software device without a window")
	fs.IntVar(&opts.frames, "frames", 0, "stop after this many frames (headless defaults to 1)")
	fs.StringVar(&opts.out, "out", "", "write the last headless frame to this PNG file")
	fs.StringVar(&opts.scenePath, "scene", "", "scene layout YAML file (default: built-in desert)")
	fs.BoolVar(&opts.vsync, "vsync", true, "wait for vertical sync when presenting")
	fs.TextVar(&opts.logLevel, "log-level", slog.LevelInfo, "log level: debug, info, warn or error")
	fs.BoolVar(&opts.profile, "profile", false, "log frame timing statistics")
	fs.Float64Var(&opts.fps, "fps", 0, "frame rate cap, 0 for uncapped")
	fs.Float64Var(&opts.inspect, "inspect", 0, "log the scene state every N seconds, 0 to disable")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.width <= 0 || opts.height <= 0 {
		fmt.Fprintf(stderr, "invalid size %dx%d\n", opts.width, opts.height)
		return opts, errors.New("invalid size")
	}
	if opts.out != "" && !opts.headless {
		fmt.Fprintln(stderr, "-out requires -headless")
		return opts, errors.New("-out requires -headless")
	}
	if opts.headless && opts.frames == 0 {
		opts.frames = 1
	}
	return opts, nil
}

func render(opts options, logger *slog.Logger) error {
	var (
		host engine.Host
		dev  device.Device
		sw   *soft.Device
	)
	if opts.headless {
		var err error
		sw, err = soft.NewDevice(opts.width, opts.height, soft.WithLogger(logger))
		if err != nil {
			return err
		}
		host, dev = engine.NewHeadlessHost(opts.width, opts.height, opts.frames), sw
	} else {
		win, err := window.NewWindow(window.WithTitle("oxy-toon"), window.WithSize(opts.width, opts.height))
		if err != nil {
			return err
		}
		gpu, err := wgpudev.NewDevice(win.SurfaceDescriptor(), win.Width(), win.Height(),
			wgpudev.WithLogger(logger), wgpudev.WithVSync(opts.vsync))
		if err != nil {
			return errors.Join(err, win.Close())
		}
		host, dev = win, gpu
	}
	defer dev.Release()

	sceneOpts := []scene.SceneBuilderOption{
		scene.WithLogger(logger),
		scene.WithCompositorOptions(compositor.WithVSync(opts.vsync)),
	}
	if opts.scenePath != "" {
		sceneOpts = append(sceneOpts, scene.WithLayoutFile(opts.scenePath))
	}
	if opts.inspect > 0 {
		sceneOpts = append(sceneOpts,
			scene.WithInspector(scene.NewLogInspector(logger)),
			scene.WithInspectInterval(float32(opts.inspect)))
	}
	s := scene.NewScene("desert", dev, sceneOpts...)
	defer s.Release()

	eng := engine.NewEngine(
		engine.WithHost(host),
		engine.WithProfiling(opts.profile),
		engine.WithRenderFrameLimit(opts.fps),
		engine.WithMaxFrames(opts.frames),
	)
	if err := eng.Run(s); err != nil {
		return err
	}
	logger.Info("done", "frames", eng.Frames())

	if sw != nil && opts.out != "" {
		return writePNG(opts.out, sw)
	}
	return nil
}

func writePNG(path string, dev *soft.Device) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := png.Encode(f, dev.Frontbuffer()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
