package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/profiler"
)

// ErrNoHost is returned by Run when the engine was built without a Host.
var ErrNoHost = errors.New("engine: no host")

// App is what the engine drives. Init runs once before the first frame; Update and Draw run
// once per frame in that order; OnResize runs between frames when the host reports a new size.
type App interface {
	// Init creates every resource the app needs. An error aborts Run before the first frame.
	//
	// Returns:
	//   - error: error if initialization fails
	Init() error

	// Update advances the app state.
	//
	// Parameters:
	//   - dt: seconds since the previous frame
	//   - total: seconds since the first frame
	//   - input: the input captured for this frame
	Update(dt, total float32, input common.InputSnapshot)

	// Draw renders and presents one frame.
	//
	// Parameters:
	//   - dt: seconds since the previous frame
	//   - total: seconds since the first frame
	Draw(dt, total float32)

	// OnResize reacts to a new client size. It is never called with a zero dimension.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	OnResize(width, height int)
}

// Host is the platform side of the loop: a window or a headless stand-in.
type Host interface {
	// PollEvents processes pending platform events.
	//
	// Returns:
	//   - bool: false once the host wants the loop to stop
	PollEvents() bool

	// Input returns the input captured by the last PollEvents.
	Input() common.InputSnapshot

	// Size returns the client size in pixels.
	Size() (width, height int)

	// SetResizeCallback sets the function called when the client size changes.
	SetResizeCallback(callback func(width, height int))

	// Close releases platform resources.
	Close() error
}

// engine implements the Engine interface.
type engine struct {
	host Host

	quitChannel chan struct{}
	quitOnce    sync.Once

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        int
	frames           int
}

// Engine runs an App on a Host in a single-threaded loop: PollEvents, Update, Draw.
type Engine interface {
	// Host returns the host the engine runs on.
	//
	// Returns:
	//   - Host: the host, or nil
	Host() Host

	// Run initializes the app and runs the loop until the host stops, Quit is called or the
	// frame limit is reached. The host is closed before Run returns.
	//
	// Parameters:
	//   - app: the app to drive
	//
	// Returns:
	//   - error: the Init error, a frame panic converted to an error, or the host's Close error
	Run(app App) error

	// Quit stops the loop after the current frame. Safe to call multiple times.
	Quit()

	// Frames returns how many frames have completed.
	Frames() int

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (host, profiling, frame limits)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(profiler.WithLogger(Logger()))
	return e
}

func (e *engine) Host() Host {
	return e.host
}

func (e *engine) Run(app App) (err error) {
	if e.host == nil {
		return ErrNoHost
	}
	defer func() {
		if cerr := e.host.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("engine: close host: %w", cerr)
		}
	}()

	if err := app.Init(); err != nil {
		Logger().Error("init failed", "err", err)
		return fmt.Errorf("engine: init: %w", err)
	}

	e.host.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		Logger().Debug("host resized", "width", width, "height", height)
		app.OnResize(width, height)
	})

	return e.loop(app)
}

// loop runs frames until the host or Quit stops it. A panic inside a frame ends the loop and
// is returned as an error; per-frame device misuse is fatal.
func (e *engine) loop(app App) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("frame panicked", "frame", e.frames, "panic", r)
			if perr, ok := r.(error); ok {
				err = fmt.Errorf("engine: frame %d: %w", e.frames, perr)
				return
			}
			err = fmt.Errorf("engine: frame %d: %v", e.frames, r)
		}
	}()

	start := time.Now()
	last := start
	for e.host.PollEvents() {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		total := float32(now.Sub(start).Seconds())
		last = now

		app.Update(dt, total, e.host.Input())
		app.Draw(dt, total)
		e.frames++

		if e.profilingEnabled {
			e.profiler.Tick()
		}
		if e.maxFrames > 0 && e.frames >= e.maxFrames {
			return nil
		}
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// Quit signals the loop to stop. Uses sync.Once so the channel is only closed once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Frames() int {
	return e.frames
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
