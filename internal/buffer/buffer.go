// Package buffer provides the line-oriented text buffers that link
// operations run against.
package buffer

import (
	"fmt"
	"slices"
)

// Buffer is a sequence of lines with a cursor and a bag of buffer-local
// variables.
type Buffer interface {
	// Lines returns the buffer content. Callers must not modify it.
	Lines() []string
	// Cursor returns the zero-based line and byte column of the cursor.
	Cursor() (line, col int)
	// Path returns the backing file, or "" for buffers without one.
	Path() string
	Var(name string) (any, bool)
	SetVar(name string, v any)
	// Apply performs every change in e, or none of them.
	Apply(e Edit) error
}

// Insertion inserts Text into line Line before byte column Col.
type Insertion struct {
	Line int
	Col  int
	Text string
}

// Edit groups buffer changes that must be applied together. The insertion
// is applied before the appended lines.
type Edit struct {
	Insert *Insertion
	Append []string
}

// apply returns a new slice with e applied to lines.
func apply(lines []string, e Edit) ([]string, error) {
	out := slices.Clone(lines)
	if ins := e.Insert; ins != nil {
		if len(out) == 0 && ins.Line == 0 {
			out = []string{""}
		}
		if ins.Line < 0 || ins.Line >= len(out) {
			return nil, fmt.Errorf("buffer: insert line %d out of range [0,%d)", ins.Line, len(out))
		}
		line := out[ins.Line]
		col := min(max(ins.Col, 0), len(line))
		out[ins.Line] = line[:col] + ins.Text + line[col:]
	}
	return append(out, e.Append...), nil
}

// Memory is a Buffer held entirely in memory.
type Memory struct {
	lines []string
	line  int
	col   int
	path  string
	vars  map[string]any
}

// Option configures a Memory buffer.
type Option func(*Memory)

// WithCursor places the cursor.
func WithCursor(line, col int) Option {
	return func(m *Memory) {
		m.line, m.col = line, col
	}
}

// WithPath marks the buffer as backed by path without touching the file.
func WithPath(path string) Option {
	return func(m *Memory) { m.path = path }
}

// NewMemory returns an in-memory buffer holding lines.
func NewMemory(lines []string, opts ...Option) *Memory {
	m := &Memory{lines: slices.Clone(lines), vars: make(map[string]any)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lines returns the buffer content.
func (m *Memory) Lines() []string {
	return m.lines
}

// Cursor returns the cursor position.
func (m *Memory) Cursor() (int, int) {
	return m.line, m.col
}

// Path returns the backing file path, if any.
func (m *Memory) Path() string {
	return m.path
}

// Var returns a buffer-local variable.
func (m *Memory) Var(name string) (any, bool) {
	v, ok := m.vars[name]
	return v, ok
}

// SetVar sets a buffer-local variable.
func (m *Memory) SetVar(name string, v any) {
	m.vars[name] = v
}

// Apply applies e to the buffer content.
func (m *Memory) Apply(e Edit) error {
	lines, err := apply(m.lines, e)
	if err != nil {
		return err
	}
	m.lines = lines
	return nil
}
