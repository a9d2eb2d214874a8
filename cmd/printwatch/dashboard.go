package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/analysisapi"
	"github.com/tinytelemetry/printwatch/internal/capture"
	"github.com/tinytelemetry/printwatch/internal/metrics"
	"github.com/tinytelemetry/printwatch/internal/session"
	"github.com/tinytelemetry/printwatch/internal/tui"
)

func runDashboard(cfg cliConfig) error {
	// The dashboard owns the terminal; logs go to a file.
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	client, err := analysisapi.New(cfg.BaseURL, cfg.Session.RequestTimeout)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := obs.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("metrics: serve %s: %v", cfg.MetricsAddr, err)
			}
		}()
	}

	sess := session.New(client, cfg.Session, session.WithObserver(obs))
	dashboard := tui.NewDashboardModel(sess, tui.Options{
		BaseURL:            client.BaseURL(),
		Saver:              capture.NewSaver(cfg.CaptureDir),
		ReverseScrollWheel: cfg.ReverseScrollWheel,
	})
	app := tui.NewApp(tui.NewDashboardPage(dashboard))
	defer app.Close()

	log.Printf("printwatch %s: monitoring %s", version, client.BaseURL())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// configureRuntimeLogger sends the standard logger to
// ~/.local/state/printwatch/printwatch.log, falling back to stderr.
func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "printwatch")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "printwatch.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
