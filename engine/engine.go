package engine

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/opengl"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const (
	statsInterval = 5.0
	// seconds to block for window events while minimized
	suspendedWait = 0.1
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	assetManager  *assets.AssetManager
	renderer      *renderer.Renderer
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	lastStats     float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	core.SetLogLevel(core.ParseLogLevel(g.ApplicationConfig.LogLevel))

	am, err := assets.NewAssetManager(g.ApplicationConfig.AssetPath)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		assetManager: am,
		isRunning:    true,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight, config.VSync, config.Debug); err != nil {
		return err
	}
	width, height := e.platform.FramebufferSize()
	e.width, e.height = uint32(width), uint32(height)

	device, err := opengl.NewDevice(config.Debug)
	if err != nil {
		return err
	}

	if config.WatchAssets {
		if err := e.assetManager.Watch(); err != nil {
			core.LogWarn("shader hot reload disabled: %s", err)
		}
	}

	r, err := renderer.New(device, e.assetManager, config.Renderer, width, height)
	if err != nil {
		return err
	}
	e.renderer = r

	sm, err := systems.NewSystemManager(r.Resources(), &systems.CameraSystemConfig{MaxCameraCount: 8})
	if err != nil {
		return err
	}
	sm.OnResize(e.width, e.height)
	e.systemManager = sm

	e.gameInstance.SystemManager = sm
	e.gameInstance.Renderer = r

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runErr error
	for e.isRunning {
		core.EventDispatchPosted()
		if e.isSuspended {
			if !e.platform.WaitEvents(suspendedWait) {
				e.isRunning = false
			}
			continue
		}
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}
		if e.isSuspended || !e.isRunning {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		if err := e.frame(delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err)
			runErr = err
			e.isRunning = false
			break
		}
		e.platform.SwapBuffers()

		e.metrics.Update(platform.GetAbsoluteTime() - frameStartTime)
		if currentTime-e.lastStats >= statsInterval {
			e.logStats()
			e.lastStats = currentTime
		}

		// input state is copied last so everything this frame saw the same keys
		core.InputUpdate(delta)
		e.lastTime = currentTime
	}

	return runErr
}

func (e *Engine) frame(delta float64) error {
	if err := e.gameInstance.FnUpdate(delta); err != nil {
		return fmt.Errorf("game update: %w", err)
	}
	if err := e.renderer.Begin(e.systemManager.ActiveCamera()); err != nil {
		return err
	}
	if err := e.gameInstance.FnRender(e.renderer, delta); err != nil {
		// close the frame so the renderer stays usable for shutdown
		return errors.Join(fmt.Errorf("game render: %w", err), e.renderer.End())
	}
	return e.renderer.End()
}

func (e *Engine) logStats() {
	fps, frameTime := e.metrics.Frame()
	s := e.renderer.Stats()
	core.LogDebug("%.1f fps (%.2fms) frame=%d renderables=%d commands=%d multidraws=%d instances=%d wraps=%d fence retries=%d skipped state=%d",
		fps, frameTime, s.Frame, s.Renderables, s.DrawCommands, s.MultiDraws, s.Instances, s.RingWraps, s.FenceRetries, s.StateSkipped)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
	}
	errs = append(errs,
		e.assetManager.Close(),
		e.platform.Shutdown(),
		core.InputShutdown(),
		core.EventSystemShutdown(),
	)
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	case core.KEY_F1:
		e.toggleStage(metadata.StageDebug)
		return true
	case core.KEY_F2:
		e.toggleStage(metadata.StageBloom)
		return true
	}
	return false
}

func (e *Engine) toggleStage(stage metadata.StageMask) {
	if e.renderer == nil {
		return
	}
	e.renderer.ToggleStages(stage)
	core.LogInfo("stage %s enabled: %t", stage, e.renderer.IsEnabled(stage))
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
		e.clock.Update()
		e.lastTime = e.clock.Elapsed()
	}

	if err := e.renderer.Resize(int32(width), int32(height)); err != nil {
		core.LogError(err.Error())
	}
	e.systemManager.OnResize(width, height)
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	return true
}
