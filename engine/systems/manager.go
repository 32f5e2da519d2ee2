package systems

import (
	"errors"

	"github.com/spaghettifunk/lumen/engine/renderer/components"
)

// SystemManager groups the systems a game talks to. The resources manager
// belongs to the renderer; the manager only borrows it.
type SystemManager struct {
	cameraSystem *CameraSystem
	resources    *ResourcesManager
}

func NewSystemManager(resources *ResourcesManager, cameras *CameraSystemConfig) (*SystemManager, error) {
	if resources == nil {
		return nil, errors.New("system manager needs a resources manager")
	}
	cs, err := NewCameraSystem(cameras)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		cameraSystem: cs,
		resources:    resources,
	}, nil
}

func (sm *SystemManager) CameraSystem() *CameraSystem   { return sm.cameraSystem }
func (sm *SystemManager) Resources() *ResourcesManager { return sm.resources }

// ActiveCamera is the camera frames are rendered from.
func (sm *SystemManager) ActiveCamera() *components.Camera {
	return sm.cameraSystem.GetDefault()
}

// OnResize keeps every camera's aspect ratio in step with the window.
func (sm *SystemManager) OnResize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	sm.cameraSystem.DefaultCamera.SetAspect(width, height)
	for _, l := range sm.cameraSystem.Lookup {
		l.Camera.SetAspect(width, height)
	}
}

func (sm *SystemManager) Shutdown() error {
	return sm.cameraSystem.Shutdown()
}
