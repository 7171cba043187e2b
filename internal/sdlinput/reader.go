// Package sdlinput feeds joysticks reported by SDL3 into a gamepad.Manager.
package sdlinput

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/jupiterrider/purego-sdl3/sdl"
	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
	"github.com/soar/padcursor/internal/joystick"
)

const pollDelayNS = 4_000_000 // drain SDL events well above the dispatch rate

// Manager is the part of gamepad.Manager the reader drives.
type Manager interface {
	CreateController(gamepad.Descriptor) (*gamepad.Controller, error)
	RemoveController(*gamepad.Controller) error
	SubmitMotion(id int, ev gamepad.MotionEvent) bool
	SubmitKey(id int, ev gamepad.KeyEvent) bool
}

type joystickInfo struct {
	joystick   *sdl.Joystick
	device     *joystick.Device
	name       string
	id         sdl.JoystickID
	controller *gamepad.Controller
}

// Reader reads joystick input from the SDL3 Joystick API and submits it to a
// Manager.
type Reader struct {
	manager   Manager
	scene     gamepad.Scene
	joysticks map[sdl.JoystickID]*joystickInfo
	log       *zap.Logger

	// OnInit, if set, runs on the SDL thread right after SDL_Init.
	OnInit func()
}

func NewReader(m Manager, scene gamepad.Scene, log *zap.Logger) *Reader {
	return &Reader{
		manager:   m,
		scene:     scene,
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		log:       log,
	}
}

// Run initializes SDL and runs the event loop on the current thread until
// ctx is cancelled.
func (r *Reader) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		return fmt.Errorf("SDL init failed: %s", sdl.GetError())
	}
	defer sdl.Quit()

	r.log.Info("SDL3 joystick subsystem initialized")
	if r.OnInit != nil {
		r.OnInit()
	}

	// Check for already-connected joysticks
	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		default:
		}

		r.processEvents()
		sdl.DelayNS(pollDelayNS)
	}
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			devEvent := event.JDevice()
			r.openJoystick(devEvent.Which)

		case sdl.EventJoystickRemoved:
			devEvent := event.JDevice()
			r.removeJoystick(devEvent.Which)

		case sdl.EventJoystickButtonDown:
			be := event.JButton()
			ev, ok := r.lookup(be.Which).Button(int32(be.Button), true)
			r.submitKey(be.Which, ev, ok)

		case sdl.EventJoystickButtonUp:
			be := event.JButton()
			ev, ok := r.lookup(be.Which).Button(int32(be.Button), false)
			r.submitKey(be.Which, ev, ok)

		case sdl.EventJoystickAxisMotion:
			ae := event.JAxis()
			if d := r.lookup(ae.Which); d != nil && d.Axis(int32(ae.Axis), int16(ae.Value)) {
				r.submitMotion(ae.Which, d.Motion())
			}

		case sdl.EventJoystickHatMotion:
			he := event.JHat()
			if he.Hat != 0 {
				continue
			}
			for _, ev := range r.lookup(he.Which).Hat(uint8(he.Value)) {
				r.submitKey(he.Which, ev, true)
			}
		}
	}
}

// lookup returns nil for joysticks that were never opened.
func (r *Reader) lookup(id sdl.JoystickID) *joystick.Device {
	if info, ok := r.joysticks[id]; ok {
		return info.device
	}
	return nil
}

func (r *Reader) submitMotion(id sdl.JoystickID, ev gamepad.MotionEvent) {
	if info, ok := r.joysticks[id]; ok {
		r.manager.SubmitMotion(info.controller.ID(), ev)
	}
}

func (r *Reader) submitKey(id sdl.JoystickID, ev gamepad.KeyEvent, ok bool) {
	if !ok {
		return
	}
	if info, found := r.joysticks[id]; found {
		r.manager.SubmitKey(info.controller.ID(), ev)
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		r.log.Warn("failed to open joystick",
			zap.Uint32("instance", uint32(instanceID)),
			zap.String("error", sdl.GetError()))
		return
	}

	jsID := sdl.GetJoystickID(js)
	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	name := sdl.GetJoystickName(js)
	dev := joystick.NewDevice(gamepad.GetMapping(vendorID, productID))

	controller, err := r.manager.CreateController(gamepad.Descriptor{
		Name:      name,
		VendorID:  vendorID,
		ProductID: productID,
		Class:     dev.Class(),
		Scene:     r.scene,
	})
	if err != nil {
		sdl.CloseJoystick(js)
		if !errors.Is(err, gamepad.ErrManagerClosed) {
			r.log.Error("failed to register joystick", zap.String("name", name), zap.Error(err))
		}
		return
	}
	if err := controller.SetEnabled(true); err != nil {
		r.log.Error("failed to enable joystick", zap.String("name", name), zap.Error(err))
	}

	r.joysticks[jsID] = &joystickInfo{
		joystick:   js,
		device:     dev,
		name:       name,
		id:         jsID,
		controller: controller,
	}

	r.log.Info("joystick connected",
		zap.String("name", name),
		zap.String("vid", fmt.Sprintf("%04X", vendorID)),
		zap.String("pid", fmt.Sprintf("%04X", productID)),
		zap.String("mapping", dev.Mapping().Name),
		zap.Int("controller", controller.ID()),
		zap.Int32("axes", int32(sdl.GetNumJoystickAxes(js))),
		zap.Int32("buttons", int32(sdl.GetNumJoystickButtons(js))),
		zap.Int32("hats", int32(sdl.GetNumJoystickHats(js))))
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}

	r.log.Info("joystick disconnected", zap.String("name", info.name))
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)

	if err := r.manager.RemoveController(info.controller); err != nil && !errors.Is(err, gamepad.ErrManagerClosed) {
		r.log.Warn("failed to deregister joystick", zap.String("name", info.name), zap.Error(err))
	}
}

func (r *Reader) closeAll() {
	for id := range r.joysticks {
		r.removeJoystick(id)
	}
}
