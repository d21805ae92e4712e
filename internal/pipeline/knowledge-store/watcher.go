// internal/pipeline/knowledge-store/watcher.go
package knowledgestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

var ErrWatchUnsupported = errors.New("WATCH_UNSUPPORTED")

const watchDebounce = 500 * time.Millisecond

// Watch reloads the index whenever the file artifacts are replaced, for
// example by an offline index-builder run. It blocks until ctx is done.
// Only the file backend can be watched.
func (s *Store) Watch(ctx context.Context) error {
	fa, ok := s.artifacts.(*FileArtifacts)
	if !ok || fa == nil {
		return ErrWatchUnsupported
	}
	if err := os.MkdirAll(fa.Dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(fa.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", fa.Dir, err)
	}
	s.logger.Info("watching index artifacts", map[string]interface{}{"dir": fa.Dir})

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != ChunksFileName {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("artifact watcher error", map[string]interface{}{"error": err.Error()})

		case <-timer.C:
			if err := s.Load(ctx); err != nil && !errors.Is(err, ErrArtifactsNotFound) {
				s.logger.Warn("reload after artifact change failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
