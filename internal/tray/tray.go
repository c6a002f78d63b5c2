// Package tray provides a system tray interface for the tripoint pointing daemon.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onOverlay   func()
	onQuit      func()
	enabled     bool
	lastSession string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastSession *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOverlay sets the callback function to be called when the overlay menu item is clicked.
func (t *Tray) OnOverlay(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOverlay = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	// Set the tray title and tooltip
	systray.SetTitle("tripoint")
	systray.SetTooltip("tripoint trackpad pointing")

	// Create menu items
	t.menuToggle = systray.AddMenuItem("● Enabled", "Toggle pointer output")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuLastSession = systray.AddMenuItem(lastSessionTitle(t.lastSession), "Most recent pointing session")
	t.mu.Unlock()
	t.menuLastSession.Disable()
	systray.AddSeparator()

	menuOverlay := systray.AddMenuItem("Open Overlay...", "Open overlay in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit tripoint")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOverlay.ClickedCh:
				t.handleOverlay()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
// It performs cleanup tasks.
func (t *Tray) onExit() {
	// Cleanup resources if needed
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	// Update menu item text based on new state
	if enabled {
		t.menuToggle.SetTitle("● Enabled")
	} else {
		t.menuToggle.SetTitle("○ Disabled")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleOverlay handles the overlay menu item click.
func (t *Tray) handleOverlay() {
	t.mu.RLock()
	callback := t.onOverlay
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastSession updates the last session display in the menu. A value set
// before the tray is ready is kept and applied when the menu is built.
func (t *Tray) SetLastSession(summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSession = summary
	if t.menuLastSession != nil {
		t.menuLastSession.SetTitle(lastSessionTitle(summary))
	}
}

func lastSessionTitle(summary string) string {
	if summary == "" {
		return "Last session: none"
	}
	return "Last session: " + summary
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
