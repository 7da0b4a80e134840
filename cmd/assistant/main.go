// Command assistant runs the voice assistant in the terminal: push-to-talk
// conversation with the remote realtime endpoint, live transcript and
// session stats.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/binaryworks/medilink/adapters/audio/miniaudio"
	"github.com/binaryworks/medilink/internal/config"
	"github.com/binaryworks/medilink/internal/realtime"
	"github.com/binaryworks/medilink/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadAssistant()
	if err != nil {
		return err
	}

	// the TUI owns the terminal, logs go to a file
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"assistant.log"}
	logger, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	audioClient, err := miniaudio.NewClient(cfg.SampleRate, logger)
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer audioClient.Close()

	session := realtime.NewClient(
		realtime.WithURL(cfg.RealtimeURL),
		realtime.WithToken(cfg.RealtimeToken),
		realtime.WithLogger(logger),
	)

	svc := usecase.NewAssistantService(
		audioClient.Capture,
		audioClient.Playback,
		session,
		usecase.AssistantConfig{SampleRate: cfg.SampleRate},
		logger,
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	}()

	program := tea.NewProgram(newModel(svc), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
