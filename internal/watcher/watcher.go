package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
	"github.com/SteelMorgan/lpreserver-watcher/internal/observability"
	"github.com/SteelMorgan/lpreserver-watcher/internal/offset"
	"github.com/SteelMorgan/lpreserver-watcher/internal/parser"
	"github.com/SteelMorgan/lpreserver-watcher/internal/progress"
	"github.com/SteelMorgan/lpreserver-watcher/internal/status"
	"github.com/SteelMorgan/lpreserver-watcher/internal/tailer"
)

const defaultErrorCheckInterval = 10 * time.Minute

// NotifyFunc is called with the category whose status changed. It runs on
// the watcher goroutine, outside the watcher's lock.
type NotifyFunc func(domain.Category)

// WatchState describes which files are being watched
type WatchState int

const (
	StateStopped WatchState = iota
	StateWatchingPrimary
	StateWatchingPrimaryAndProgress
)

// String returns a readable name for logs
func (s WatchState) String() string {
	switch s {
	case StateWatchingPrimary:
		return "watching_primary"
	case StateWatchingPrimaryAndProgress:
		return "watching_primary+progress"
	default:
		return "stopped"
	}
}

// Options configures a Watcher
type Options struct {
	LogFile            string
	ErrorFile          string
	ErrorCheckInterval time.Duration
	State              offset.StateStore // optional, enables resume after restart
	Notify             NotifyFunc        // optional
}

// Watcher follows the lpreserver daemon log and, while a replication runs,
// its progress file. One instance owns its file handles, watches and status
// store; instances never share them.
type Watcher struct {
	opts    Options
	logPath string
	store   *status.Store
	newFS   func() (fsWatcher, error)

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	fs       fsWatcher
	primary  *tailer.Reader
	progress *progressWatch
	lost     map[string]bool // paths removed or renamed since Start
}

// progressWatch is the secondary watch of one replication job. Its reader,
// fs watch and tracker are acquired and released together.
type progressWatch struct {
	path    string
	jobID   string
	reader  *tailer.Reader
	tracker progress.Tracker
}

// New creates a stopped watcher
func New(opts Options) *Watcher {
	if opts.ErrorCheckInterval <= 0 {
		opts.ErrorCheckInterval = defaultErrorCheckInterval
	}
	return &Watcher{
		opts:    opts,
		logPath: filepath.Clean(opts.LogFile),
		store:   status.NewStore(),
		newFS:   newNotifyWatcher,
	}
}

// Start reads the current log content quietly, then watches the log for
// changes. Calling Start on a running watcher does nothing. Cancelling ctx
// stops the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		log.Debug().Str("file", w.logPath).Msg("Watcher already running")
		return nil
	}

	var startOffset int64
	if w.opts.State != nil {
		startOffset = w.restore(ctx)
	}

	primary, err := tailer.Open(w.logPath, startOffset)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	fs, err := w.newFS()
	if err != nil {
		primary.Close()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch before the catch-up read so no append can slip between the two
	if err := fs.Add(w.logPath); err != nil {
		fs.Close()
		primary.Close()
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.fs = fs
	w.primary = primary
	w.lost = make(map[string]bool)
	w.running = true

	if w.opts.State != nil {
		if path, err := w.opts.State.ActiveProgress(w.ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to load active progress file")
		} else if path != "" {
			log.Info().Str("file", path).Msg("Resuming replication progress watch")
			w.startProgress(w.ctx, path, true)
		}
	}

	w.readPrimary(true)

	log.Info().
		Str("file", w.logPath).
		Int64("offset", primary.Offset()).
		Str("state", w.stateLocked().String()).
		Msg("Status watcher started")

	w.checkErrorFile()
	go w.loop(w.ctx, fs)

	return nil
}

// restore loads the persisted status and returns the primary offset to
// resume from
func (w *Watcher) restore(ctx context.Context) int64 {
	if records, err := w.opts.State.LoadStatus(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted status")
	} else {
		w.store.Restore(records)
	}

	off, err := w.opts.State.Get(ctx, offset.SourcePrimary, w.logPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load saved offset, reading from beginning")
		return 0
	}
	if info, err := os.Stat(w.logPath); err != nil || int64(off) > info.Size() {
		// rotated or gone since the last run
		if err := w.opts.State.Delete(ctx, offset.SourcePrimary, w.logPath); err != nil {
			log.Warn().Err(err).Msg("Failed to delete stale offset")
		}
		return 0
	}
	return int64(off)
}

// Stop removes all watches and releases every file handle. No read happens
// after Stop returns. Calling Stop on a stopped watcher does nothing.
func (w *Watcher) Stop() error {
	return w.stop(nil)
}

// stop tears down the run that owns fs, or the current run if fs is nil
func (w *Watcher) stop(fs fsWatcher) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running || (fs != nil && w.fs != fs) {
		return nil
	}
	w.running = false

	w.persist(w.ctx)
	// keep the persisted progress path so the next start resumes it
	w.releaseProgress(false)

	var errs []error
	if err := w.fs.Remove(w.logPath); err != nil {
		log.Debug().Err(err).Str("file", w.logPath).Msg("Failed to remove watch")
	}
	if err := w.fs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close file watcher: %w", err))
	}
	if err := w.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	w.cancel()

	log.Info().Str("file", w.logPath).Msg("Status watcher stopped")
	return errors.Join(errs...)
}

// GetMessages returns the latest values of the requested fields for a
// category, positionally aligned with fields
func (w *Watcher) GetMessages(category string, fields []string) []string {
	return w.store.Get(category, fields)
}

// State reports which files are currently watched
func (w *Watcher) State() WatchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Watcher) stateLocked() WatchState {
	switch {
	case !w.running:
		return StateStopped
	case w.progress != nil:
		return StateWatchingPrimaryAndProgress
	default:
		return StateWatchingPrimary
	}
}

func (w *Watcher) loop(ctx context.Context, fs fsWatcher) {
	ticker := time.NewTicker(w.opts.ErrorCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := w.stop(fs); err != nil {
				log.Warn().Err(err).Msg("Error stopping watcher")
			}
			return
		case ev, ok := <-fs.Events():
			if !ok {
				return
			}
			w.handleEvent(fs, ev)
		case err, ok := <-fs.Errors():
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("File watcher error")
		case <-ticker.C:
			w.checkErrorFile()
		}
	}
}

func (w *Watcher) handleEvent(fs fsWatcher, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		w.handleChange(fs, ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.markLost(fs, ev)
	}
}

// markLost stops routing changes of a removed or renamed file. The daemon
// log stays lost until the next Start; a progress file is watched again when
// a new replication names it.
func (w *Watcher) markLost(fs fsWatcher, ev fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running || w.fs != fs {
		return
	}

	name := filepath.Clean(ev.Name)
	w.lost[name] = true
	log.Warn().
		Str("file", name).
		Str("op", ev.Op.String()).
		Msg("Watched file removed or renamed, no further updates until restart")
}

// handleChange reads the unread lines of a changed file and raises the
// resulting notifications once the lock is released
func (w *Watcher) handleChange(fs fsWatcher, name string) {
	w.mu.Lock()
	if !w.running || w.fs != fs {
		w.mu.Unlock()
		return
	}

	var pending []domain.Category
	name = filepath.Clean(name)
	switch {
	case w.lost[name]:
		log.Debug().Str("file", name).Msg("Change for lost file ignored")
	case name == w.logPath:
		pending = w.readPrimary(false)
	case w.progress != nil && name == w.progress.path:
		pending = w.readProgress(false)
	default:
		log.Debug().Str("file", name).Msg("Change for unwatched file ignored")
	}
	w.mu.Unlock()

	w.emit(pending)
}

// readPrimary consumes new daemon log lines. Returns the categories to
// notify, none when quiet.
func (w *Watcher) readPrimary(quiet bool) []domain.Category {
	ctx, span := observability.StartSpan(w.ctx, "watcher.primary_batch",
		attribute.String("file", w.logPath),
		attribute.Bool("quiet", quiet),
	)

	lines, err := w.primary.ReadUnread()
	if err != nil {
		log.Warn().Err(err).Str("file", w.logPath).Msg("Failed to read log file")
		observability.EndSpan(span, err, "read failed")
		return nil
	}
	span.SetAttributes(attribute.Int("lines", len(lines)))

	var pending []domain.Category
	for _, line := range lines {
		entry, ok := parser.ParseLine(line)
		if !ok {
			log.Debug().Str("line", line).Msg("Log line skipped")
			continue
		}

		log.Debug().
			Str("line", line).
			Str("category", string(entry.Event.Category)).
			Str("action", entry.Action.String()).
			Msg("New log message")

		w.store.Apply(entry.Event)

		switch entry.Action {
		case parser.ActionStartProgress:
			pending = addCategories(pending, w.startProgress(ctx, entry.ProgressFile, quiet)...)
		case parser.ActionStopProgress:
			w.releaseProgress(true)
		}

		if entry.Notify && !quiet {
			pending = addCategories(pending, entry.Event.Category)
		}
	}

	if len(lines) > 0 {
		w.persist(ctx)
	}
	observability.EndSpan(span, nil, "ok")
	return pending
}

// startProgress replaces any current progress watch with one on path and
// reads what the job has written so far
func (w *Watcher) startProgress(ctx context.Context, path string, quiet bool) []domain.Category {
	// the previous job's file must not feed this job's record
	w.releaseProgress(true)

	if path == "" {
		log.Warn().Msg("Replication started without a progress file, not watching")
		return nil
	}
	path = filepath.Clean(path)
	delete(w.lost, path)

	reader, err := tailer.Open(path, 0)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to open progress file")
		return nil
	}
	if err := w.fs.Add(path); err != nil {
		reader.Close()
		log.Warn().Err(err).Str("file", path).Msg("Failed to watch progress file")
		return nil
	}

	w.progress = &progressWatch{
		path:   path,
		jobID:  uuid.NewString(),
		reader: reader,
	}

	log.Info().
		Str("file", path).
		Str("job_id", w.progress.jobID).
		Msg("Watching replication progress")

	if w.opts.State != nil {
		if err := w.opts.State.SetActiveProgress(ctx, path); err != nil {
			log.Warn().Err(err).Msg("Failed to persist active progress file")
		}
	}

	return w.readProgress(quiet)
}

// releaseProgress drops the progress watch, its handle and its state.
// clearPersisted also forgets it in the state store.
func (w *Watcher) releaseProgress(clearPersisted bool) {
	p := w.progress
	if p == nil {
		return
	}
	w.progress = nil

	if err := w.fs.Remove(p.path); err != nil {
		log.Debug().Err(err).Str("file", p.path).Msg("Failed to remove progress watch")
	}
	if err := p.reader.Close(); err != nil {
		log.Warn().Err(err).Str("file", p.path).Msg("Failed to close progress file")
	}
	p.tracker.Reset()

	log.Info().
		Str("file", p.path).
		Str("job_id", p.jobID).
		Msg("Stopped watching replication progress")

	if clearPersisted && w.opts.State != nil {
		if err := w.opts.State.SetActiveProgress(w.ctx, ""); err != nil {
			log.Warn().Err(err).Msg("Failed to clear active progress file")
		}
	}
}

// readProgress consumes new progress lines of the current replication
func (w *Watcher) readProgress(quiet bool) []domain.Category {
	p := w.progress
	ctx, span := observability.StartSpan(w.ctx, "watcher.progress_batch",
		attribute.String("file", p.path),
		attribute.String("job_id", p.jobID),
		attribute.Bool("quiet", quiet),
	)

	lines, err := p.reader.ReadUnread()
	if err != nil {
		log.Warn().Err(err).Str("file", p.path).Msg("Failed to read progress file")
		observability.EndSpan(span, err, "read failed")
		return nil
	}
	span.SetAttributes(attribute.Int("lines", len(lines)))

	update, ok := p.tracker.Consume(lines)
	if !ok {
		observability.EndSpan(span, nil, "no new progress")
		return nil
	}

	w.store.Apply(domain.StatusEvent{
		Category: domain.CategoryRunning,
		Fields: domain.Fields{
			domain.FieldDataset: update.Dataset,
			domain.FieldMessage: update.Message,
		},
	})

	log.Debug().
		Str("job_id", p.jobID).
		Str("dataset", update.Dataset).
		Str("status", update.Message).
		Msg("Replication progress")

	w.persist(ctx)
	observability.EndSpan(span, nil, "ok")

	if quiet {
		return nil
	}
	return []domain.Category{domain.CategoryRunning}
}

// persist saves the primary cursor and current status. Failures only cost
// a re-read after restart.
func (w *Watcher) persist(ctx context.Context) {
	if w.opts.State == nil {
		return
	}
	if err := w.opts.State.Set(ctx, offset.SourcePrimary, w.logPath, uint64(w.primary.Offset())); err != nil {
		log.Warn().Err(err).Msg("Failed to save offset")
	}
	if err := w.opts.State.SaveStatus(ctx, w.store.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("Failed to save status")
	}
}

func (w *Watcher) emit(categories []domain.Category) {
	for _, c := range categories {
		log.Debug().Str("category", string(c)).Msg("Status available")
		if w.opts.Notify != nil {
			w.opts.Notify(c)
		}
	}
}

// checkErrorFile only reports whether the backend error file exists.
// TODO: populate the critical category once the error file format is defined.
func (w *Watcher) checkErrorFile() {
	if w.opts.ErrorFile == "" {
		return
	}
	if _, err := os.Stat(w.opts.ErrorFile); err == nil {
		log.Debug().Str("file", w.opts.ErrorFile).Msg("Error file present, parsing not implemented")
	}
}

// addCategories appends categories not already present, keeping order
func addCategories(list []domain.Category, categories ...domain.Category) []domain.Category {
	for _, c := range categories {
		found := false
		for _, existing := range list {
			if existing == c {
				found = true
				break
			}
		}
		if !found {
			list = append(list, c)
		}
	}
	return list
}
