package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

const permissionsFile = "permissions.json"

// exportFile is the on-disk layout of one category export.
type exportFile struct {
	Samples []Sample `json:"samples"`
}

// permissions is the optional grant file written by the exporter.
type permissions struct {
	Granted []models.Category `json:"granted"`
	Denied  []models.Category `json:"denied"`
}

// ExportStore is a HealthStore backed by a directory of per-category JSON
// exports (vitals.json, activity.json, ...). Change notifications come from
// watching the directory.
type ExportStore struct {
	dir string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	subs     map[models.Category]map[int]func()
	nextID   int
	loopDone chan struct{}
}

var _ HealthStore = (*ExportStore)(nil)

// NewExportStore creates a store reading from dir.
func NewExportStore(dir string) *ExportStore {
	return &ExportStore{
		dir:  dir,
		subs: make(map[models.Category]map[int]func()),
	}
}

// Dir returns the export directory.
func (s *ExportStore) Dir() string {
	return s.dir
}

// Available reports whether the export directory exists.
func (s *ExportStore) Available() bool {
	if s.dir == "" {
		return false
	}
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// RequestAuthorization resolves grants from permissions.json. Without the
// file every category is treated as granted; with it, categories that are
// denied or absent from a non-empty granted list are denied.
func (s *ExportStore) RequestAuthorization(_ context.Context, categories []models.Category) (AuthorizationResult, error) {
	if !s.Available() {
		return AuthorizationResult{}, ErrPlatformUnavailable
	}

	var perms permissions
	data, err := os.ReadFile(filepath.Join(s.dir, permissionsFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return AuthorizationResult{}, fmt.Errorf("failed to read permissions: %w", err)
	default:
		if err := json.Unmarshal(data, &perms); err != nil {
			return AuthorizationResult{}, fmt.Errorf("failed to parse permissions: %w", err)
		}
	}

	var res AuthorizationResult
	for _, c := range categories {
		denied := slices.Contains(perms.Denied, c) ||
			(len(perms.Granted) > 0 && !slices.Contains(perms.Granted, c))
		if denied {
			res.Denied = append(res.Denied, c)
		} else {
			res.Granted = append(res.Granted, c)
		}
	}
	return res, nil
}

// Query returns samples of sampleType overlapping [from, to].
func (s *ExportStore) Query(ctx context.Context, sampleType SampleType, from, to time.Time) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, ErrPlatformUnavailable
	}

	category, ok := CategoryOf(sampleType)
	if !ok {
		return nil, fmt.Errorf("unknown sample type %q", sampleType)
	}

	data, err := os.ReadFile(s.categoryPath(category))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s export: %w", category, err)
	}

	var file exportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s export: %w", category, err)
	}

	var out []Sample
	for _, smp := range file.Samples {
		if smp.Type != sampleType {
			continue
		}
		end := smp.End
		if end.IsZero() {
			end = smp.Start
		}
		if end.Before(from) || smp.Start.After(to) {
			continue
		}
		out = append(out, smp)
	}
	return out, nil
}

// Subscribe registers onChange for writes to the category's export file.
// onChange runs on the watcher goroutine and must not block.
func (s *ExportStore) Subscribe(category models.Category, onChange func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		if err := s.startWatcherLocked(); err != nil {
			return nil, fmt.Errorf("failed to start export watcher: %w", err)
		}
	}

	if s.subs[category] == nil {
		s.subs[category] = make(map[int]func())
	}
	s.nextID++
	id := s.nextID
	s.subs[category][id] = onChange

	var once sync.Once
	cancel := func() {
		once.Do(func() { s.unsubscribe(category, id) })
	}
	return cancel, nil
}

func (s *ExportStore) unsubscribe(category models.Category, id int) {
	s.mu.Lock()
	delete(s.subs[category], id)
	if len(s.subs[category]) == 0 {
		delete(s.subs, category)
	}
	idle := len(s.subs) == 0
	s.mu.Unlock()

	if idle {
		if err := s.stopWatcher(); err != nil {
			logger.Error("failed to close export watcher", "error", err)
		}
	}
}

// startWatcherLocked watches the export directory (must hold lock).
func (s *ExportStore) startWatcherLocked() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(s.dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	s.watcher = watcher
	s.loopDone = make(chan struct{})
	go s.watchLoop(watcher, s.loopDone)
	return nil
}

// stopWatcher closes the watcher and waits for its loop to exit.
func (s *ExportStore) stopWatcher() error {
	s.mu.Lock()
	watcher, done := s.watcher, s.loopDone
	if len(s.subs) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.watcher, s.loopDone = nil, nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (s *ExportStore) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			for _, c := range models.AllCategories() {
				if name == string(c)+".json" {
					s.dispatch(c)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("export watcher error", "dir", s.dir, "error", err)
		}
	}
}

func (s *ExportStore) dispatch(category models.Category) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs[category]))
	for _, fn := range s.subs[category] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close drops all subscriptions and stops watching.
func (s *ExportStore) Close() error {
	s.mu.Lock()
	s.subs = make(map[models.Category]map[int]func())
	s.mu.Unlock()
	return s.stopWatcher()
}

func (s *ExportStore) categoryPath(c models.Category) string {
	return filepath.Join(s.dir, string(c)+".json")
}

// WriteExport writes samples for category atomically, as an exporter would.
func WriteExport(dir string, category models.Category, samples []Sample) error {
	data, err := json.MarshalIndent(exportFile{Samples: samples}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	path := filepath.Join(dir, string(category)+".json")
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
