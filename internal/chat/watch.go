package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pders01/chatlens/internal/debuglog"
)

// ReloadFunc receives a freshly loaded document after the watched file
// changed, or the load error.
type ReloadFunc func(doc *Document, info *FileInfo, err error)

// settleDelay gives writers time to finish before the file is re-read.
var settleDelay = 150 * time.Millisecond

// Watch reloads path whenever it is written or replaced and calls onReload
// with the result. It blocks until ctx is done.
//
// The parent directory is watched rather than the file itself because
// editors and exporters often replace files with an atomic rename.
func Watch(ctx context.Context, path string, onReload ReloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			debuglog.Warnf("Failed to close file watcher: %v", cerr)
		}
	}()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	debuglog.Infof("Watching export file for changes: %s", abs)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				// Coalesce bursts of events into one reload.
				pending = time.After(settleDelay)
			}
		case <-pending:
			pending = nil
			if _, statErr := os.Stat(abs); errors.Is(statErr, os.ErrNotExist) {
				debuglog.Infof("Export file was removed and not replaced, skipping reload")
				continue
			}
			doc, info, loadErr := LoadFile(abs)
			onReload(doc, info, loadErr)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			debuglog.Warnf("File watcher error: %v", werr)
		}
	}
}
