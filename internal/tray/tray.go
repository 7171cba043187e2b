package tray

import (
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Controllers is what the pause toggle acts on.
type Controllers interface {
	Controllers() []*gamepad.Controller
}

// Tray manages the system tray icon and menu
type Tray struct {
	url          string
	controllers  Controllers
	shutdownFunc ShutdownFunc
	log          *zap.Logger

	once         sync.Once
	shuttingDown atomic.Bool
	menuOpen     *systray.MenuItem
	menuPause    *systray.MenuItem
	menuExit     *systray.MenuItem
}

// New creates a new Tray instance. url is opened by "Open Viewer".
func New(url string, controllers Controllers, shutdownFn ShutdownFunc, log *zap.Logger) *Tray {
	return &Tray{
		url:          url,
		controllers:  controllers,
		shutdownFunc: shutdownFn,
		log:          log,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	t.shuttingDown.Store(true)
	systray.Quit()
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("padcursor")
	systray.SetTooltip("padcursor - " + t.url)

	t.menuOpen = systray.AddMenuItem("Open Viewer", "Open the web viewer")
	t.menuPause = systray.AddMenuItemCheckbox("Pause Input", "Disable every controller", false)
	systray.AddSeparator()
	t.menuExit = systray.AddMenuItem("Exit", "Quit application")

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()

	t.log.Info("system tray initialized")
}

func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuOpen.ClickedCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuPause.ClickedCh:
			if t.menuPause.Checked() {
				t.menuPause.Uncheck()
				t.setAll(true)
			} else {
				t.menuPause.Check()
				t.setAll(false)
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) setAll(enabled bool) {
	for _, c := range t.controllers.Controllers() {
		if err := c.SetEnabled(enabled); err != nil {
			t.log.Warn("toggle failed", zap.Int("id", c.ID()), zap.Error(err))
		}
	}
	t.log.Info("input paused", zap.Bool("paused", !enabled))
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.log.Info("system tray exiting")
}

func (t *Tray) openBrowser() {
	// Prevent multiple browser launches during shutdown
	if t.shuttingDown.Load() {
		return
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", t.url)
	case "darwin":
		cmd = exec.Command("open", t.url)
	default:
		cmd = exec.Command("xdg-open", t.url)
	}

	if err := cmd.Start(); err != nil {
		t.log.Warn("failed to open browser", zap.Error(err))
	}
}
