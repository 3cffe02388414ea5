package codegen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const DefaultFilename = "output.js"

var ErrBadFilename = errors.New("invalid filename")

// Workspace is the directory generated code is written to. It also holds the
// last model reply and the last written path, both overwritten per request.
type Workspace struct {
	dir             string
	defaultFilename string

	mu           sync.RWMutex
	currentFile  string
	lastResponse string
}

// NewWorkspace creates dir if needed. An empty defaultFilename means output.js.
func NewWorkspace(dir, defaultFilename string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	if defaultFilename == "" {
		defaultFilename = DefaultFilename
	}
	return &Workspace{dir: dir, defaultFilename: defaultFilename}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Save writes the JavaScript extracted from content and returns the file path.
func (w *Workspace) Save(content, filename string) (string, error) {
	name, err := w.cleanName(filename)
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(ExtractJS(content)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	w.mu.Lock()
	w.currentFile = path
	w.mu.Unlock()

	log.Info().Str("path", path).Msg("saved code")
	return path, nil
}

// cleanName keeps only the base name so callers cannot escape the workspace.
func (w *Workspace) cleanName(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return w.defaultFilename, nil
	}
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, filename)
	}
	return name, nil
}

func (w *Workspace) Remember(response string) {
	w.mu.Lock()
	w.lastResponse = response
	w.mu.Unlock()
}

func (w *Workspace) CurrentFile() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentFile
}

func (w *Workspace) LastResponse() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastResponse
}
