package loader

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval is the delay after an fsnotify event before checking the
// checksum, letting rapid event bursts settle (e.g. atomic write + rename).
const debounceInterval = 100 * time.Millisecond

// Watcher observes a scenario file on disk and invokes a callback when its
// content changes. It watches the parent directory rather than the file
// itself, because editors and deployment tools often do an atomic replace
// (write temp file, rename), which changes the inode.
type Watcher struct {
	path     string
	onChange func(path string)
	lastHash [sha256.Size]byte
}

// NewWatcher prepares a watcher for the given scenario file. The callback
// fires only when the file's checksum actually changed.
func NewWatcher(path string, onChange func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: abs, onChange: onChange}
	w.lastHash, err = hashFile(abs)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Run blocks, forwarding change notifications until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watchDir := filepath.Dir(w.path)
	fileName := filepath.Base(w.path)
	if err := watcher.Add(watchDir); err != nil {
		return err
	}
	slog.InfoContext(ctx, "watching scenario file", "path", w.path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			// Create covers the rename that lands an atomic replace.
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceInterval, func() {
				newHash, err := hashFile(w.path)
				if err != nil {
					slog.Warn("failed to hash scenario file", "path", w.path, "error", err)
					return
				}
				if newHash == w.lastHash {
					return
				}
				w.lastHash = newHash
				slog.Info("scenario file changed", "path", w.path)
				w.onChange(w.path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("scenario watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func hashFile(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}
