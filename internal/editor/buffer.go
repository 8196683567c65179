package editor

import "sync"

// Buffer is an in-memory editor widget
type Buffer struct {
	mu      sync.RWMutex
	opts    Options
	text    string
	focused bool
}

// NewBuffer creates a buffer holding opts.Value
func NewBuffer(opts Options) *Buffer {
	return &Buffer{opts: opts, text: opts.Value}
}

// SetValue replaces the whole text
func (b *Buffer) SetValue(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	return nil
}

// Value returns the current text
func (b *Buffer) Value() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text, nil
}

// Focus gives the buffer input focus
func (b *Buffer) Focus() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focused = true
	return nil
}

// Focused reports whether Focus has been called
func (b *Buffer) Focused() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.focused
}

// SetTheme switches the visual theme
func (b *Buffer) SetTheme(theme string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.Theme = theme
}

// Theme returns the visual theme
func (b *Buffer) Theme() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.opts.Theme
}

// IndentMore indents lines [from, to] (Tab)
func (b *Buffer) IndentMore(from, to int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = IndentLines(b.text, from, to, b.opts)
}

// IndentLess dedents lines [from, to] (Shift-Tab)
func (b *Buffer) IndentLess(from, to int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = DedentLines(b.text, from, to, b.opts)
}
