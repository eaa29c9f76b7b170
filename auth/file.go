package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileToken reads a token from a file, such as a mounted secret.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Rotation: the file is read once at construction and again on Reload or
//   when Watch observes a change. A failed reload keeps the previous token.
type FileToken struct {
	path string

	mu    sync.RWMutex
	token string
}

// NewFileToken reads path and returns a source serving its trimmed contents.
func NewFileToken(path string) (*FileToken, error) {
	f := &FileToken{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the watched file path.
func (f *FileToken) Path() string {
	return f.path
}

// Token returns the most recently loaded token.
func (f *FileToken) Token(context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.token == "" {
		return "", ErrMissingCredentials
	}
	return f.token, nil
}

// Reload re-reads the file. An empty file is an error and leaves the
// current token in place.
func (f *FileToken) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("auth: read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return fmt.Errorf("auth: token file %s: %w", f.path, ErrMissingCredentials)
	}

	f.mu.Lock()
	f.token = tok
	f.mu.Unlock()
	return nil
}

// Watch reloads the token whenever the file changes, until ctx is done.
// onReload, if non-nil, receives the outcome of each reload attempt.
//
// The parent directory is watched so atomic renames and symlink swaps used
// by secret mounts are seen.
func (f *FileToken) Watch(ctx context.Context, onReload func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return err
	}

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			err := f.Reload()
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}
