package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var modeExtensions = map[string]string{
	"python":     ".py",
	"go":         ".go",
	"javascript": ".js",
}

// File is an editor widget backed by a file in a workspace directory, so
// the text can be edited with any external editor.
type File struct {
	mu      sync.Mutex
	opts    Options
	path    string
	focused bool
}

// NewFile creates the workspace directory and writes opts.Value unless the
// file already exists.
func NewFile(dir string, opts Options) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	ext, ok := modeExtensions[opts.Mode]
	if !ok {
		ext = ".txt"
	}

	f := &File{
		opts: opts,
		path: filepath.Join(dir, "solution"+ext),
	}

	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		if err := f.SetValue(opts.Value); err != nil {
			return nil, err
		}
	}

	slog.Debug("file editor ready", "path", f.path, "mode", opts.Mode)
	return f, nil
}

// Path returns the backing file
func (f *File) Path() string {
	return f.path
}

// SetValue overwrites the file
func (f *File) SetValue(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.WriteFile(f.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

// Value reads the file. A missing file reads as empty text.
func (f *File) Value() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return string(data), nil
}

// Focus marks the file as the active buffer
func (f *File) Focus() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = true
	return nil
}

// Focused reports whether Focus has been called
func (f *File) Focused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

// SetTheme records the visual theme
func (f *File) SetTheme(theme string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Theme = theme
}

// Theme returns the visual theme
func (f *File) Theme() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.Theme
}

// Open runs command (e.g. $EDITOR) on the file with the process stdio and
// waits for it to exit.
func (f *File) Open(ctx context.Context, command string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("no editor command configured")
	}

	args := append(fields[1:], f.path)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", fields[0], err)
	}
	return nil
}
