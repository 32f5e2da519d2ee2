package testbed

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type TestGame struct {
	*engine.Game
}

type sceneObject struct {
	mesh      core.AssetID
	material  core.AssetID
	transform mgl32.Mat4
}

type gameState struct {
	WorldCamera *components.Camera

	width  uint32
	height uint32
	time   float64

	litShader core.AssetID
	skyShader core.AssetID
	skyMesh   core.AssetID

	floor   sceneObject
	cubes   [3]sceneObject
	spin    float32
	checker core.AssetID
	lights  []renderer.PointLight
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil || g.Renderer == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}

	state := g.State.(*gameState)
	rm := g.SystemManager.Resources()

	state.WorldCamera = g.SystemManager.ActiveCamera()
	state.WorldCamera.SetPosition(mgl32.Vec3{10.5, 5.0, 9.5})
	state.WorldCamera.Yaw(mgl32.DegToRad(45))

	var err error
	if state.litShader, err = rm.LoadShader("shaders/lit"); err != nil {
		return err
	}
	if state.skyShader, err = rm.LoadShader("shaders/sky"); err != nil {
		return err
	}
	if state.skyMesh, err = rm.LoadMesh(systems.GenerateSkyCube("sky_cube")); err != nil {
		return err
	}

	state.checker, err = rm.LoadTexturePixels("checker", 64, 64, checkerPixels(64, 8), metadata.DefaultTextureConfig())
	if err != nil {
		return err
	}

	floorMaterial, err := rm.LoadMaterial(metadata.MaterialConfig{
		Name:          "floor",
		Albedo:        mgl32.Vec4{0.8, 0.8, 0.8, 1},
		Roughness:     0.9,
		AlbedoTexture: state.checker,
	})
	if err != nil {
		return err
	}
	floorMesh, err := rm.LoadMesh(systems.GeneratePlane(60, 60, 4, 4, 12, 12, "floor"))
	if err != nil {
		return err
	}
	state.floor = sceneObject{mesh: floorMesh, material: floorMaterial, transform: mgl32.Translate3D(0, -3, 0)}

	colours := []mgl32.Vec4{{0.9, 0.3, 0.2, 1}, {0.2, 0.7, 0.3, 1}, {0.2, 0.4, 0.9, 1}}
	sizes := []float32{4, 2, 1}
	for i := range state.cubes {
		mat, err := rm.LoadMaterial(metadata.MaterialConfig{
			Name:          fmt.Sprintf("cube_%d", i),
			Albedo:        colours[i],
			Metallic:      float32(i) * 0.4,
			Roughness:     0.4,
			AlbedoTexture: core.InvalidID,
		})
		if err != nil {
			return err
		}
		mesh, err := rm.LoadMesh(systems.GenerateCube(sizes[i], sizes[i], sizes[i], 1, 1, fmt.Sprintf("cube_%d", i)))
		if err != nil {
			return err
		}
		state.cubes[i] = sceneObject{mesh: mesh, material: mat, transform: mgl32.Ident4()}
	}

	g.Renderer.SetSun(renderer.DirectionalLight{
		Direction: mgl32.Vec3{-0.4, -1, -0.3},
		Colour:    mgl32.Vec3{1, 0.95, 0.85},
		Intensity: 2,
	})
	state.lights = []renderer.PointLight{
		{Radius: 12, Colour: mgl32.Vec3{1, 0.4, 0.2}, Intensity: 6},
		{Radius: 12, Colour: mgl32.Vec3{0.2, 0.5, 1}, Intensity: 6},
	}

	return nil
}

var tempMoveSpeed float32 = 10.0

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.time += deltaTime
	dt := float32(deltaTime)

	if core.InputIsKeyDown(core.KEY_A) || core.InputIsKeyDown(core.KEY_LEFT) {
		state.WorldCamera.Yaw(1.0 * dt)
	}
	if core.InputIsKeyDown(core.KEY_D) || core.InputIsKeyDown(core.KEY_RIGHT) {
		state.WorldCamera.Yaw(-1.0 * dt)
	}
	if core.InputIsKeyDown(core.KEY_UP) {
		state.WorldCamera.Pitch(1.0 * dt)
	}
	if core.InputIsKeyDown(core.KEY_DOWN) {
		state.WorldCamera.Pitch(-1.0 * dt)
	}
	if core.InputIsKeyDown(core.KEY_W) {
		state.WorldCamera.MoveForward(tempMoveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		state.WorldCamera.MoveBackward(tempMoveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_Q) {
		state.WorldCamera.MoveLeft(tempMoveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_E) {
		state.WorldCamera.MoveRight(tempMoveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_SPACE) {
		state.WorldCamera.MoveUp(tempMoveSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_X) {
		state.WorldCamera.MoveDown(tempMoveSpeed * dt)
	}

	if !core.InputIsKeyDown(core.KEY_P) && core.InputWasKeyDown(core.KEY_P) {
		pos := state.WorldCamera.GetPosition()
		core.LogDebug("Pos:[%.2f, %.2f, %.2f]", pos.X(), pos.Y(), pos.Z())
	}

	// Each cube is parented to the previous one, so rotations compound.
	state.spin += 0.5 * dt
	rotation := mgl32.HomogRotate3DY(state.spin)
	state.cubes[0].transform = rotation
	state.cubes[1].transform = state.cubes[0].transform.Mul4(mgl32.Translate3D(10, 0, 1)).Mul4(rotation)
	state.cubes[2].transform = state.cubes[1].transform.Mul4(mgl32.Translate3D(5, 0, 1)).Mul4(rotation)

	for i := range state.lights {
		angle := state.time*0.7 + float64(i)*math.Pi
		state.lights[i].Position = mgl32.Vec3{float32(8 * math.Cos(angle)), 1, float32(8 * math.Sin(angle))}
	}

	return nil
}

func (g *TestGame) Render(r *renderer.Renderer, deltaTime float64) error {
	state := g.State.(*gameState)

	lit := metadata.StageShadow | metadata.StageScene | metadata.StageDebug
	if err := r.Draw(metadata.Renderable{
		Mesh:      state.floor.mesh,
		Material:  state.floor.material,
		Shader:    state.litShader,
		Transform: state.floor.transform,
		Stages:    metadata.StageScene | metadata.StageDebug,
	}); err != nil {
		return err
	}
	for _, c := range state.cubes {
		if err := r.Draw(metadata.Renderable{
			Mesh:      c.mesh,
			Material:  c.material,
			Shader:    state.litShader,
			Transform: c.transform,
			Stages:    lit,
		}); err != nil {
			return err
		}
	}
	if err := r.Draw(metadata.Renderable{
		Mesh:      state.skyMesh,
		Material:  g.SystemManager.Resources().DefaultMaterial(),
		Shader:    state.skyShader,
		Transform: mgl32.Ident4(),
		Stages:    metadata.StageSky,
	}); err != nil {
		return err
	}

	for _, l := range state.lights {
		if err := r.AddPointLight(l); err != nil {
			return err
		}
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	rm := g.SystemManager.Resources()

	for _, c := range state.cubes {
		rm.RemoveMesh(c.mesh)
		rm.RemoveMaterial(c.material)
	}
	rm.RemoveMesh(state.floor.mesh)
	rm.RemoveMaterial(state.floor.material)
	rm.RemoveMesh(state.skyMesh)
	rm.RemoveTexture(state.checker)
	rm.RemoveShader(state.litShader)
	rm.RemoveShader(state.skyShader)
	return nil
}

// checkerPixels builds an RGBA8 checkerboard of size x size texels.
func checkerPixels(size, cell int) []byte {
	pixels := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(90)
			if (x/cell+y/cell)%2 == 0 {
				v = 230
			}
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return pixels
}
