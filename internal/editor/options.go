package editor

import "strings"

// Editor themes
const (
	ThemeDefault        = "default"
	ThemeMaterialDarker = "material-darker"
)

// Placeholder is the text shown before any exercise is selected
const Placeholder = "# Select an exercise from the sidebar"

// Options configures an editor widget
type Options struct {
	Mode           string
	Theme          string
	LineNumbers    bool
	TabSize        int
	IndentUnit     int
	IndentWithTabs bool
	Value          string
}

// DefaultOptions returns the python editing setup
func DefaultOptions() Options {
	return Options{
		Mode:        "python",
		Theme:       ThemeDefault,
		LineNumbers: true,
		TabSize:     4,
		IndentUnit:  4,
		Value:       Placeholder,
	}
}

func (o Options) indent() string {
	if o.IndentWithTabs {
		return "\t"
	}
	unit := o.IndentUnit
	if unit <= 0 {
		unit = 4
	}
	return strings.Repeat(" ", unit)
}

// IndentLines indents lines [from, to] (0-based, inclusive) by one unit.
// Out-of-range bounds are clamped.
func IndentLines(text string, from, to int, opts Options) string {
	unit := opts.indent()
	return mapLines(text, from, to, func(line string) string {
		if line == "" {
			return line
		}
		return unit + line
	})
}

// DedentLines removes up to one indent unit from lines [from, to]
func DedentLines(text string, from, to int, opts Options) string {
	unit := opts.indent()
	tabSize := opts.TabSize
	if tabSize <= 0 {
		tabSize = 4
	}
	return mapLines(text, from, to, func(line string) string {
		if strings.HasPrefix(line, unit) {
			return line[len(unit):]
		}
		if strings.HasPrefix(line, "\t") {
			return line[1:]
		}
		n := 0
		for n < len(line) && n < tabSize && line[n] == ' ' {
			n++
		}
		return line[n:]
	})
}

func mapLines(text string, from, to int, fn func(string) string) string {
	lines := strings.Split(text, "\n")
	if from < 0 {
		from = 0
	}
	if to >= len(lines) {
		to = len(lines) - 1
	}
	for i := from; i <= to; i++ {
		lines[i] = fn(lines[i])
	}
	return strings.Join(lines, "\n")
}
