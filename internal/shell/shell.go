package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/terra-clan/drills/internal/editor"
	"github.com/terra-clan/drills/internal/models"
	"github.com/terra-clan/drills/internal/session"
)

const helpText = `Commands:
  categories              list categories
  category <name>         switch the active category
  list                    list exercises of the active category
  open <topic>/<name>     load an exercise (alias: select)
  show                    print the editor contents
  edit                    open the solution in $EDITOR
  submit                  run the solution (alias: run)
  indent <n>[-<m>]        indent lines n..m of the solution (Tab)
  dedent <n>[-<m>]        dedent lines n..m of the solution (Shift-Tab)
  reset                   restore the starting code
  reset-stats             delete the stats of the current exercise
  theme                   toggle light/dark theme
  status                  show the session state
  help                    show this help
  quit                    leave (alias: exit)`

// Session is the controller surface the shell drives
type Session interface {
	SetCategory(name string)
	Topics() []string
	FilteredExercises() []models.TopicExercises
	Select(ctx context.Context, topic, name string)
	Submit(ctx context.Context)
	Reset()
	ResetStats(ctx context.Context)
	OutputClass() session.OutputClass
	CurrentPasses() int
	ToggleTheme(ctx context.Context)
	Editor() session.Editor
	Snapshot() session.State
}

type opener interface {
	Open(ctx context.Context, command string) error
}

type indenter interface {
	IndentMore(from, to int)
	IndentLess(from, to int)
}

type pather interface {
	Path() string
}

// Shell is a line-oriented terminal view over a session. It also serves as
// the session's Confirmer and Display.
type Shell struct {
	in            *bufio.Reader
	lines         chan inputLine
	startReader   sync.Once
	out           io.Writer
	editorCommand string
	editorOptions editor.Options

	mu     sync.Mutex
	theme  session.Theme
	styles styles
}

// New creates a shell reading commands from in and writing to out.
// editorCommand is run by the edit command.
func New(in io.Reader, out io.Writer, editorCommand string) *Shell {
	return &Shell{
		in:            bufio.NewReader(in),
		lines:         make(chan inputLine),
		out:           out,
		editorCommand: editorCommand,
		editorOptions: editor.DefaultOptions(),
		theme:         session.ThemeLight,
		styles:        newStyles(out, session.ThemeLight),
	}
}

// ApplyTheme restyles the shell
func (s *Shell) ApplyTheme(theme session.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	s.styles = newStyles(s.out, theme)
}

// Theme returns the applied theme
func (s *Shell) Theme() session.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Shell) style() styles {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles
}

// Confirm asks prompt on the shell input; only "y" or "yes" agree
func (s *Shell) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(s.out, "%s [y/N] ", prompt)
	line, err := s.readLine(ctx)
	if err != nil {
		fmt.Fprintln(s.out)
		return false, err
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type inputLine struct {
	text string
	err  error
}

// readInput feeds s.lines until the input fails, then closes it
func (s *Shell) readInput() {
	defer close(s.lines)
	for {
		line, err := s.in.ReadString('\n')
		if line != "" {
			s.lines <- inputLine{text: strings.TrimSpace(line)}
		}
		if err != nil {
			s.lines <- inputLine{err: err}
			return
		}
	}
}

// readLine returns the next input line. It returns ctx.Err() as soon as ctx
// is done, even while the input is blocked.
func (s *Shell) readLine(ctx context.Context) (string, error) {
	s.startReader.Do(func() { go s.readInput() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// Run reads and executes commands until quit, end of input or ctx is done
func (s *Shell) Run(ctx context.Context, sess Session) error {
	fmt.Fprintln(s.out, s.style().subtle.Render("Type help for a list of commands."))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.out, s.style().prompt.Render("drills>")+" ")
		line, err := s.readLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if ctx.Err() != nil {
			fmt.Fprintln(s.out)
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if quit := s.Exec(ctx, sess, line); quit {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should exit
func (s *Shell) Exec(ctx context.Context, sess Session, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "categories":
		s.printCategories(sess)
	case "category":
		if len(args) == 0 {
			s.printf("usage: category <name>")
			return false
		}
		sess.SetCategory(strings.Join(args, " "))
		s.printExercises(sess)
	case "list", "ls":
		s.printExercises(sess)
	case "open", "select":
		s.open(ctx, sess, args)
	case "show":
		s.show(sess)
	case "edit":
		s.edit(ctx, sess)
	case "submit", "run":
		s.submit(ctx, sess)
	case "indent", "dedent":
		s.indent(sess, cmd == "dedent", args)
	case "reset":
		if sess.Snapshot().Skeleton == "" {
			s.printf("No exercise selected")
			return false
		}
		sess.Reset()
		s.printf("Editor reset to the starting code")
	case "reset-stats":
		s.resetStats(ctx, sess)
	case "theme":
		sess.ToggleTheme(ctx)
		s.printf("Theme: %s", s.Theme())
	case "status":
		s.status(sess)
	case "quit", "exit":
		return true
	default:
		s.printf("Unknown command: %s (type help)", cmd)
	}
	return false
}

func (s *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Shell) printCategories(sess Session) {
	st := sess.Snapshot()
	if len(st.Categories) == 0 {
		s.printf("No categories loaded")
		return
	}

	names := make([]string, 0, len(st.Categories))
	for name := range st.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	styles := s.style()
	for _, name := range names {
		line := fmt.Sprintf("  %s (%d topics)", name, len(st.Categories[name]))
		if name == st.ActiveCategory {
			line = styles.current.Render("* " + strings.TrimPrefix(line, "  "))
		}
		fmt.Fprintln(s.out, line)
	}
}

func (s *Shell) printExercises(sess Session) {
	st := sess.Snapshot()
	topics := sess.FilteredExercises()
	if len(topics) == 0 {
		s.printf("No exercises in category %s", st.ActiveCategory)
		return
	}

	styles := s.style()
	for _, t := range topics {
		fmt.Fprintln(s.out, styles.header.Render(t.Topic))
		for _, ex := range t.Exercises {
			marker := "  "
			if st.Current != nil && st.Current.Topic == t.Topic && st.Current.Name == ex.Name {
				marker = "> "
			}
			stats := styles.subtle.Render(fmt.Sprintf("%d/%d passed", ex.Passes, ex.Attempts))
			line := fmt.Sprintf("%s%s  %s", marker, ex.Name, stats)
			if ex.Passes > 0 {
				line += " " + styles.success.Render("✓")
			}
			fmt.Fprintln(s.out, line)
		}
	}
}

// parseExercise accepts "topic/name" or "topic name"
func parseExercise(args []string) (topic, name string, ok bool) {
	switch len(args) {
	case 1:
		topic, name, ok = strings.Cut(args[0], "/")
		return topic, name, ok && topic != "" && name != ""
	case 2:
		return args[0], args[1], true
	default:
		return "", "", false
	}
}

func (s *Shell) open(ctx context.Context, sess Session, args []string) {
	topic, name, ok := parseExercise(args)
	if !ok {
		s.printf("usage: open <topic>/<name>")
		return
	}

	sess.Select(ctx, topic, name)

	st := sess.Snapshot()
	if st.Output != "" || st.Current == nil || st.Current.Topic != topic || st.Current.Name != name {
		s.renderOutput(sess)
		return
	}

	s.printf("Opened %s", st.Current)
	if p, ok := sess.Editor().(pather); ok {
		s.printf("Solution file: %s", p.Path())
	}
}

func (s *Shell) show(sess Session) {
	ed := sess.Editor()
	if ed == nil {
		s.printf("No editor")
		return
	}
	text, err := ed.Value()
	if err != nil {
		s.printf("Editor error: %v", err)
		return
	}
	fmt.Fprint(s.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(s.out)
	}
}

func (s *Shell) edit(ctx context.Context, sess Session) {
	o, ok := sess.Editor().(opener)
	if !ok {
		s.printf("The editor cannot be opened externally")
		return
	}
	if err := o.Open(ctx, s.editorCommand); err != nil {
		s.printf("Editor error: %v", err)
	}
}

// parseLineRange parses "n" or "n-m" (1-based) into 0-based bounds
func parseLineRange(arg string) (from, to int, err error) {
	first, last, found := strings.Cut(arg, "-")
	if from, err = strconv.Atoi(first); err != nil || from < 1 {
		return 0, 0, fmt.Errorf("invalid line: %q", first)
	}
	to = from
	if found {
		if to, err = strconv.Atoi(last); err != nil || to < from {
			return 0, 0, fmt.Errorf("invalid line: %q", last)
		}
	}
	return from - 1, to - 1, nil
}

func (s *Shell) indent(sess Session, dedent bool, args []string) {
	if len(args) != 1 {
		s.printf("usage: indent|dedent <n>[-<m>]")
		return
	}
	from, to, err := parseLineRange(args[0])
	if err != nil {
		s.printf("%v", err)
		return
	}

	ed := sess.Editor()
	if ed == nil {
		s.printf("No editor")
		return
	}

	if in, ok := ed.(indenter); ok {
		if dedent {
			in.IndentLess(from, to)
		} else {
			in.IndentMore(from, to)
		}
		return
	}

	text, err := ed.Value()
	if err != nil {
		s.printf("Editor error: %v", err)
		return
	}

	if dedent {
		text = editor.DedentLines(text, from, to, s.editorOptions)
	} else {
		text = editor.IndentLines(text, from, to, s.editorOptions)
	}
	if err := ed.SetValue(text); err != nil {
		s.printf("Editor error: %v", err)
	}
}

func (s *Shell) submit(ctx context.Context, sess Session) {
	st := sess.Snapshot()
	if st.Current == nil {
		s.printf("No exercise selected")
		return
	}

	fmt.Fprintln(s.out, s.style().subtle.Render("Running "+st.Current.String()+"..."))
	sess.Submit(ctx)
	s.renderOutput(sess)
}

func (s *Shell) resetStats(ctx context.Context, sess Session) {
	if sess.Snapshot().Current == nil {
		s.printf("No exercise selected")
		return
	}
	sess.ResetStats(ctx)
	s.printf("Passes: %d", sess.CurrentPasses())
}

func (s *Shell) renderOutput(sess Session) {
	st := sess.Snapshot()
	if st.Output == "" {
		return
	}

	class := sess.OutputClass()
	styles := s.style()
	fmt.Fprintln(s.out, styles.subtle.Render("--- output ["+class.String()+"] ---"))
	fmt.Fprintln(s.out, styles.output(class).Render(strings.TrimRight(st.Output, "\n")))
}

func (s *Shell) status(sess Session) {
	st := sess.Snapshot()

	current := "none"
	if st.Current != nil {
		current = st.Current.String()
	}
	theme := session.ThemeLight
	if st.DarkMode {
		theme = session.ThemeDark
	}

	s.printf("Category: %s", st.ActiveCategory)
	s.printf("Exercise: %s", current)
	s.printf("Passes:   %d", sess.CurrentPasses())
	s.printf("Theme:    %s", theme)
	if class := sess.OutputClass().String(); class != "" {
		s.printf("Output:   %s", class)
	}
}
