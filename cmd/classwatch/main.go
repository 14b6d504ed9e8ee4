package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"classwatch/internal/app"
	"classwatch/internal/config"
	"classwatch/pkg/types"
)

// headlessPresenter stands in for platform fullscreen when the client
// runs without a windowing host. Enter and Exit always succeed; there
// is no external presentation to go out of sync with.
type headlessPresenter struct{}

func (headlessPresenter) Enter() error                  { return nil }
func (headlessPresenter) Exit() error                   { return nil }
func (headlessPresenter) Subscribe(onChange func(bool)) {}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run mounts the monitoring client and keeps it up until SIGINT or
// SIGTERM. The client has no command surface of its own; everything it
// does is driven by the backend and the push channel.
func run() error {
	configPath := os.Getenv("CLASSWATCH_CONFIG_FILE")
	cfg := config.LoadConfigWithPrecedence(configPath)

	config.InitLogger()
	defer zap.S().Sync()

	application, err := app.NewApplication(cfg, headlessPresenter{}, app.Callbacks{
		OnSessions: func(sessions []types.MonitoringSession) {
			zap.S().Infow("active sessions", "count", len(sessions))
		},
		OnEmotion: func(snapshot *types.EmotionSnapshot) {
			zap.S().Debugw("emotion snapshot",
				"total_detections", snapshot.TotalDetections,
				"camera_active", snapshot.CameraActive)
		},
		OnDuration: func(display string) {
			zap.S().Debugw("session duration", "elapsed", display)
		},
		OnError: func(err error) {
			zap.S().Warnw("recoverable failure", "error", err)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	classroomID := os.Getenv("CLASSWATCH_CLASSROOM_ID")
	if err := application.Mount(ctx, classroomID); err != nil {
		return fmt.Errorf("failed to mount monitoring client: %w", err)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalCh
	zap.S().Infow("shutting down", "signal", sig.String())

	if err := application.Unmount(); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
