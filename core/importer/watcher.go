package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"duetfm/core/library"
	"duetfm/logger"

	"github.com/fsnotify/fsnotify"
)

// audioExtensions are the file types picked up from the drop directory.
var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// Watcher imports audio files dropped into a local directory as songs for a
// fixed profile. Imported files are moved into a done/ subdirectory.
type Watcher struct {
	dir   string
	store *library.Store
}

// NewWatcher creates a watcher over dir uploading through store.
func NewWatcher(dir string, store *library.Store) *Watcher {
	return &Watcher{dir: dir, store: store}
}

// Run watches the drop directory until ctx is cancelled. Files already
// present at startup are imported first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(w.dir, "done"), 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.importFile(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	logger.Info("import watcher running", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				go w.importWhenStable(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("import watcher error", logger.ErrorField(err))
		}
	}
}

// importWhenStable waits for the file size to stop changing before
// importing, since the file may still be copied into the directory.
func (w *Watcher) importWhenStable(ctx context.Context, path string) {
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}

		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			return
		}
		if info.Size() == lastSize {
			break
		}
		lastSize = info.Size()
	}
	w.importFile(ctx, path)
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := audioExtensions[ext]
	if !ok {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open import candidate", logger.String("path", path), logger.ErrorField(err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		logger.Warn("failed to stat import candidate", logger.String("path", path), logger.ErrorField(err))
		return
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))

	_, err = w.store.Upload(ctx, title, library.UploadFile{
		Name:        name,
		Reader:      file,
		Size:        info.Size(),
		ContentType: contentType,
	}, nil)
	if err != nil {
		logger.Error("import upload failed", logger.String("path", path), logger.ErrorField(err))
		return
	}

	done := filepath.Join(w.dir, "done", name)
	if err := os.Rename(path, done); err != nil {
		logger.Warn("failed to move imported file", logger.String("path", path), logger.ErrorField(err))
	}
	logger.Info("imported song", logger.String("title", title))
}
