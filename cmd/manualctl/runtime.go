package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"manual-chatbot-be/internal/bootstrap"
	"manual-chatbot-be/internal/config"
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/events"

	"github.com/fatih/color"
)

// loadConfig applies the command-line overrides on top of the environment.
func loadConfig() *config.Config {
	cfg := config.Load()
	if topicProfile != "" {
		cfg.Query.TopicProfile = topicProfile
	}
	if llmProvider != "" {
		cfg.Ai.LLMProvider = llmProvider
	}
	if llmModel != "" {
		cfg.Ai.LLMModel = llmModel
	}
	return cfg
}

// openContainer builds the app with logs going to the log file only, so the
// terminal stays readable.
func openContainer(cfg *config.Config) (*bootstrap.Container, error) {
	return bootstrap.NewContainer(cfg, bootstrap.Overrides{
		Logger: logger.NewIsolatedLogger(cfg.App.LogFilePath),
	})
}

// indexFiles creates a session, uploads files and blocks until processing
// ends, printing progress as it goes. It returns the session id.
func indexFiles(ctx context.Context, c *bootstrap.Container, label string, files []string) (string, error) {
	s, err := c.SessionService.Create(ctx, &dto.CreateSessionRequest{VehicleName: label})
	if err != nil {
		return "", err
	}

	for _, path := range files {
		if err := uploadFile(ctx, c, s.Id, path); err != nil {
			return "", err
		}
		color.Green("  + %s", filepath.Base(path))
	}

	listenCtx, stop := context.WithCancel(ctx)
	defer stop()
	err = c.Bus.Listen(listenCtx, events.TopicProgress, func(e events.BaseEvent) error {
		if e.SessionID() != s.Id {
			return nil
		}
		if snap, ok := c.Sessions.Get(s.Id); ok {
			fmt.Printf("\r\033[K[%3d%%] %s", snap.Progress.Percent, snap.Progress.Message)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	_, task, err := c.SessionService.Process(ctx, s.Id)
	if err != nil {
		return "", err
	}
	waitErr := task.Wait(ctx)
	fmt.Println()
	if waitErr != nil {
		return "", waitErr
	}

	snap, _ := c.Sessions.Get(s.Id)
	color.Cyan("Indexed %d page(s) for %q", snap.Progress.ProcessedUnits, snap.Label)
	return s.Id, nil
}

func uploadFile(ctx context.Context, c *bootstrap.Container, sessionID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if _, err := c.SessionService.Upload(ctx, sessionID, filepath.Base(path), info.Size(), f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
