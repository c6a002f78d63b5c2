package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/tripoint/internal/app"
	"github.com/ayusman/tripoint/internal/config"
	"github.com/ayusman/tripoint/internal/pointer"
	"github.com/ayusman/tripoint/internal/pose"
	"github.com/ayusman/tripoint/internal/predict"
	"github.com/ayusman/tripoint/internal/server"
	"github.com/ayusman/tripoint/internal/store"
	"github.com/ayusman/tripoint/internal/touch"
	"github.com/ayusman/tripoint/internal/trace"
	"github.com/ayusman/tripoint/internal/tray"
	"github.com/ayusman/tripoint/internal/trigger"
	"github.com/getlantern/systray"
)

const enabledKey = "enabled"

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: XDG config dir)")
	flag.Parse()

	fmt.Println("tripoint - Trackpad Pointing Daemon")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	dev, err := touch.OpenDevice(cfg.TouchDevice, cfg.Grab, true)
	if err != nil {
		log.Fatalf("Failed to open touch device: %v", err)
	}
	defer dev.Close()
	log.Printf("Using touch device %q", dev.Name())

	cal := calibration(cfg, dev)

	sink, err := pointer.OpenUInput(cfg.UInputPath, "tripoint pointer", cfg.ScreenWidth, cfg.ScreenHeight)
	if err != nil {
		log.Fatalf("Failed to create virtual pointer: %v", err)
	}
	defer sink.Close()

	renderer, err := trace.NewRenderer(cfg.ShotsDir)
	if err != nil {
		log.Fatalf("Failed to prepare trace directory: %v", err)
	}

	state := server.NewState()
	tr := tray.New()
	application, err := app.New(app.Config{
		Calibration: cal,
		MaxContacts: cfg.MaxContacts,
		StaleTicks:  cfg.StaleTicks,
		Pose: pose.Config{
			RefCount:   cfg.RefCount,
			Jitter:     float64(cfg.JitterPx),
			Handedness: pose.Handedness(cfg.Handedness),
		},
		Params: cfg.Params(),
		Screen: predict.Screen{
			Width:  int(cfg.ScreenWidth),
			Height: int(cfg.ScreenHeight),
		},
		TriggerMode: trigger.Mode(cfg.Trigger),
		Hold: trigger.Config{
			Hold:      cfg.HoldDuration(),
			Tolerance: float64(cfg.HoldTolerance),
		},
		HotkeyCode: uint16(cfg.HotkeyCode),
		Sink:       sink,
		Renderer:   renderer,
		Store:      st,
		State:      state,
		OnSession: func(sess *store.Session) {
			tr.SetLastSession(sessionSummary(sess))
		},
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	// Restore the enabled state from the previous run.
	if v, err := st.Settings().Get(enabledKey); err == nil && v == "false" {
		application.SetEnabled(false)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application.Start(dev.Reports(ctx))
	defer application.Stop()

	if cfg.HotkeyDevice != "" {
		hdev, err := touch.OpenDevice(cfg.HotkeyDevice, false, false)
		if err != nil {
			log.Fatalf("Failed to open hotkey device: %v", err)
		}
		defer hdev.Close()
		go application.HotkeyLoop(hdev.Reports(ctx))
	}

	srv := server.New(server.Config{Store: st, State: state})
	go func() {
		log.Printf("Listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Forward signals into the tray loop so both paths shut down the same way.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		systray.Quit()
	}()

	tr.OnToggle(func(enabled bool) {
		application.SetEnabled(enabled)
		if err := st.Settings().Set(enabledKey, fmt.Sprintf("%t", enabled)); err != nil {
			log.Printf("Failed to persist enabled state: %v", err)
		}
	})
	tr.OnOverlay(func() {
		url := "http://" + cfg.ListenAddr + "/api/state"
		if err := exec.Command("xdg-open", url).Start(); err != nil {
			log.Printf("Open %s in a browser (%v)", url, err)
		}
	})
	tr.OnQuit(cancel)

	if sess, err := st.Sessions().Latest(); err == nil {
		tr.SetLastSession(sessionSummary(sess))
	}

	// Blocks until quit; systray requires the main goroutine.
	tr.Run()
}

func sessionSummary(sess *store.Session) string {
	return fmt.Sprintf("%d points, %s", sess.PointCount, sess.StartedAt.Format("Jan 2 15:04"))
}

// calibration resolves pad bounds from the config, falling back to the
// device's advertised absolute axis ranges.
func calibration(cfg config.Config, dev *touch.Device) touch.Calibration {
	cal := touch.Calibration{
		MinX:   float64(cfg.PadMinX),
		MaxX:   float64(cfg.PadMaxX),
		MinY:   float64(cfg.PadMinY),
		MaxY:   float64(cfg.PadMaxY),
		Margin: cfg.Margin,
	}
	if cal.MaxX > cal.MinX && cal.MaxY > cal.MinY {
		return cal
	}
	if devCal, ok := dev.AbsBounds(); ok {
		devCal.Margin = cfg.Margin
		return devCal
	}
	log.Printf("No pad bounds configured and none advertised, assuming 0..%d", touch.NormMax)
	cal.MinX, cal.MaxX = 0, touch.NormMax
	cal.MinY, cal.MaxY = 0, touch.NormMax
	cal.Margin = cfg.Margin
	return cal
}
