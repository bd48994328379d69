package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/lpreserver-watcher/internal/config"
	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
	"github.com/SteelMorgan/lpreserver-watcher/internal/offset"
	"github.com/SteelMorgan/lpreserver-watcher/internal/retry"
	"github.com/SteelMorgan/lpreserver-watcher/internal/watcher"
)

// Listener receives a category together with its current fields
type Listener func(category domain.Category, values map[domain.Field]string)

// StatusService runs the status watcher and reports every status change
type StatusService struct {
	cfg      *config.Config
	state    *offset.BoltDBStore
	watcher  *watcher.Watcher
	listener Listener
}

// NewStatusService creates a new status service. The state database is
// opened when configured; a lock held by another process is retried briefly.
func NewStatusService(ctx context.Context, cfg *config.Config, listener Listener) (*StatusService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	s := &StatusService{cfg: cfg, listener: listener}

	opts := watcher.Options{
		LogFile:            cfg.LogFile,
		ErrorFile:          cfg.ErrorFile,
		ErrorCheckInterval: cfg.ErrorCheckInterval,
		Notify:             s.onStatus,
	}

	if cfg.StateDBPath != "" {
		state, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*offset.BoltDBStore, error) {
			return offset.NewBoltDBStore(cfg.StateDBPath)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		s.state = state
		opts.State = state
	}

	s.watcher = watcher.New(opts)
	return s, nil
}

// Start starts watching and blocks until ctx is cancelled
func (s *StatusService) Start(ctx context.Context) error {
	log.Info().
		Str("log_file", s.cfg.LogFile).
		Bool("persistent", s.state != nil).
		Msg("Status service starting...")

	if s.state != nil {
		s.logSavedOffsets(ctx)
	}

	// inotify limits surface as EMFILE, which clears once other watchers exit
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return s.watcher.Start(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	for _, c := range domain.Categories {
		values := s.values(c)
		if values[domain.FieldID] != "" {
			log.Info().
				Str("category", string(c)).
				Str("id", values[domain.FieldID]).
				Str("message", values[domain.FieldMessage]).
				Msg("Current status")
		}
	}

	<-ctx.Done()
	return ctx.Err()
}

// Stop stops the watcher and closes the state store
func (s *StatusService) Stop() error {
	log.Info().Msg("Status service stopping...")

	err := s.watcher.Stop()
	if s.state != nil {
		if cerr := s.state.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Running reports whether the watcher is active
func (s *StatusService) Running() bool {
	return s.watcher.State() != watcher.StateStopped
}

// GetMessages exposes the watcher query API
func (s *StatusService) GetMessages(category string, fields []string) []string {
	return s.watcher.GetMessages(category, fields)
}

func (s *StatusService) logSavedOffsets(ctx context.Context) {
	offsets, err := s.state.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list saved offsets")
		return
	}
	for key, off := range offsets {
		log.Debug().
			Str("key", key).
			Uint64("offset", off).
			Msg("Saved offset")
	}
}

func (s *StatusService) onStatus(category domain.Category) {
	values := s.values(category)

	log.Info().
		Str("category", string(category)).
		Str("id", values[domain.FieldID]).
		Str("dataset", values[domain.FieldDataset]).
		Str("summary", values[domain.FieldSummary]).
		Str("message", strings.ReplaceAll(values[domain.FieldMessage], "\n", " | ")).
		Str("time", values[domain.FieldTime]).
		Msg("Status available")

	if s.listener != nil {
		s.listener(category, values)
	}
}

func (s *StatusService) values(category domain.Category) map[domain.Field]string {
	names := make([]string, len(domain.AllFields))
	for i, f := range domain.AllFields {
		names[i] = string(f)
	}
	got := s.watcher.GetMessages(string(category), names)

	values := make(map[domain.Field]string, len(got))
	for i, f := range domain.AllFields {
		values[f] = got[i]
	}
	return values
}
