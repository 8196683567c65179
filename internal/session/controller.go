package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/drills/internal/editor"
	"github.com/terra-clan/drills/internal/models"
	"github.com/terra-clan/drills/internal/prefs"
	"github.com/terra-clan/drills/pkg/client"
)

// ResetStatsPrompt is the question asked before stats are deleted
const ResetStatsPrompt = "Reset stats for this exercise?"

// Output prefixes and messages
const (
	NetworkErrorPrefix = "Network error: "
	LoadExerciseFailed = "Failed to load exercise"
	editorErrorPrefix  = "Editor error: "
)

// API is the subset of the drills API the controller drives
type API interface {
	ListCategories(ctx context.Context) (models.Categories, error)
	ListExercises(ctx context.Context) (models.ExercisesByTopic, error)
	GetExercise(ctx context.Context, topic, name string) (*models.ExerciseDetail, error)
	// RunExercise may return a nil response without an error; it is shown
	// as an unknown error.
	RunExercise(ctx context.Context, topic, name, code string) (*models.RunResponse, error)
	ResetStats(ctx context.Context, topic, name string) error
}

// Editor is the code-editor widget owned by the controller
type Editor interface {
	SetValue(text string) error
	Value() (string, error)
	Focus() error
	SetTheme(theme string)
	Theme() string
}

// EditorFactory creates the editor widget
type EditorFactory func(opts editor.Options) (Editor, error)

// Confirmer asks the user a yes/no question. An error counts as "no".
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Display receives the theme attribute of the view
type Display interface {
	ApplyTheme(theme Theme)
}

// State is a snapshot of the controller state
type State struct {
	Categories     models.Categories
	Exercises      models.ExercisesByTopic
	ActiveCategory string
	Current        *models.Selection
	Skeleton       string
	Output         string
	Passed         bool
	ErrorType      models.ErrorType
	Loading        bool
	DarkMode       bool
}

// Controller is the exercise-session state machine. It is safe for
// concurrent use. The state lock is never held across a network call, so
// actions interleave at those points; responses issued for a selection that
// has since been replaced are dropped.
type Controller struct {
	mu sync.Mutex
	// themeMu serializes ToggleTheme so the persisted theme follows DarkMode
	themeMu sync.Mutex

	api       API
	newEditor EditorFactory
	prefs     prefs.Store
	confirmer Confirmer
	display   Display
	opts      Options
	logger    *slog.Logger

	editor Editor
	state  State

	// selectSeq orders Select calls; selectionGen changes whenever the
	// current selection is replaced.
	selectSeq    uint64
	selectionGen uint64
}

// NewController creates a controller. The editor is created lazily, once.
func NewController(api API, newEditor EditorFactory, store prefs.Store, confirmer Confirmer, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = DefaultCategory
	}

	return &Controller{
		api:       api,
		newEditor: newEditor,
		prefs:     store,
		confirmer: confirmer,
		display:   opts.Display,
		opts:      opts,
		logger:    logger,
		state: State{
			Categories:     models.Categories{},
			Exercises:      models.ExercisesByTopic{},
			ActiveCategory: opts.DefaultCategory,
		},
	}
}

// Init restores the theme, creates the editor if it does not exist yet and
// loads the listings. Failures are logged and leave the defaults in place.
func (c *Controller) Init(ctx context.Context) {
	dark := c.restoreTheme(ctx)

	c.mu.Lock()
	c.state.DarkMode = dark
	if _, err := c.ensureEditorLocked(); err != nil {
		c.logger.Error("failed to create editor", "error", err)
	}
	c.mu.Unlock()

	if c.display != nil {
		c.display.ApplyTheme(themeFor(dark))
	}

	if err := c.LoadExercises(ctx); err != nil {
		c.logger.Error("failed to load exercises", "error", err)
	}
}

func (c *Controller) restoreTheme(ctx context.Context) bool {
	if c.prefs == nil {
		return false
	}
	v, _, err := c.prefs.Get(ctx, ThemeKey)
	if err != nil {
		c.logger.Warn("failed to read theme preference", "error", err)
		return false
	}
	return Theme(v) == ThemeDark
}

// ensureEditorLocked creates the editor on first use. c.mu must be held.
func (c *Controller) ensureEditorLocked() (Editor, error) {
	if c.editor != nil {
		return c.editor, nil
	}
	if c.newEditor == nil {
		return nil, errors.New("no editor factory configured")
	}

	opts := c.opts.Editor
	opts.Theme = editorThemeFor(c.state.DarkMode)

	ed, err := c.newEditor(opts)
	if err != nil {
		return nil, err
	}
	c.editor = ed
	c.logger.Debug("editor created", "mode", opts.Mode, "theme", opts.Theme)
	return ed, nil
}

// LoadExercises fetches categories and exercise summaries concurrently.
// A transport failure on either leaves both mappings unchanged; a mapping
// whose request got an error status is kept as is.
func (c *Controller) LoadExercises(ctx context.Context) error {
	var (
		cats    models.Categories
		exs     models.ExercisesByTopic
		catsErr error
		exsErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, catsErr = c.api.ListCategories(gctx)
		return transportError(catsErr)
	})
	g.Go(func() error {
		exs, exsErr = c.api.ListExercises(gctx)
		return transportError(exsErr)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if catsErr == nil {
		c.state.Categories = cats
	} else {
		c.logger.Warn("categories not refreshed", "error", catsErr)
	}
	if exsErr == nil {
		c.state.Exercises = exs
	} else {
		c.logger.Warn("exercises not refreshed", "error", exsErr)
	}
	return nil
}

// transportError passes through everything except HTTP status errors
func transportError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return nil
	}
	return err
}

// SetCategory changes the active category. Unknown names are accepted.
func (c *Controller) SetCategory(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ActiveCategory = name
}

// Topics returns the topics of the active category
func (c *Controller) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.state.Categories[c.state.ActiveCategory]...)
}

// FilteredExercises lists the active category's topics, in server order,
// that have known exercises.
func (c *Controller) FilteredExercises() []models.TopicExercises {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []models.TopicExercises
	for _, topic := range c.state.Categories[c.state.ActiveCategory] {
		exercises, ok := c.state.Exercises[topic]
		if !ok {
			continue
		}
		result = append(result, models.TopicExercises{
			Topic:     topic,
			Exercises: append([]models.ExerciseSummary(nil), exercises...),
		})
	}
	return result
}

// Select fetches an exercise and makes it current. On failure the message
// is shown as output and the selection is kept.
func (c *Controller) Select(ctx context.Context, topic, name string) {
	c.mu.Lock()
	c.selectSeq++
	seq := c.selectSeq
	c.mu.Unlock()

	detail, err := c.api.GetExercise(ctx, topic, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.selectSeq {
		c.logger.Debug("dropping stale exercise response", "topic", topic, "name", name)
		return
	}

	if err != nil {
		c.logger.Warn("failed to load exercise", "topic", topic, "name", name, "error", err)
		c.state.Output = selectErrorMessage(err)
		return
	}

	ed, err := c.ensureEditorLocked()
	if err != nil {
		c.logger.Error("failed to create editor", "error", err)
		c.state.Output = editorErrorPrefix + err.Error()
		return
	}

	skeleton := DeriveSkeleton(detail.Code, c.opts.Skeleton)
	if err := ed.SetValue(skeleton); err != nil {
		c.logger.Error("failed to update editor", "error", err)
		c.state.Output = editorErrorPrefix + err.Error()
		return
	}

	c.selectionGen++
	c.state.Skeleton = skeleton
	c.state.Current = &models.Selection{Topic: topic, Name: name}
	c.state.Output = ""
	c.state.Passed = false
	c.state.ErrorType = ""

	if err := ed.Focus(); err != nil {
		c.logger.Warn("failed to focus editor", "error", err)
	}

	c.logger.Info("exercise selected", "topic", topic, "name", name)
}

func selectErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return LoadExerciseFailed
	}
	return err.Error()
}

// Submit sends the editor text to the run endpoint of the current
// exercise. It does nothing without a selection or while a submission is
// in flight.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	if c.state.Current == nil || c.state.Loading || c.editor == nil {
		c.mu.Unlock()
		return
	}
	sel := *c.state.Current
	gen := c.selectionGen
	ed := c.editor
	c.state.Loading = true
	c.state.Output = ""
	c.state.ErrorType = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Loading = false
		c.mu.Unlock()
	}()

	code, err := ed.Value()
	if err != nil {
		c.logger.Error("failed to read editor", "error", err)
		c.applyRunResult(gen, editorErrorPrefix+err.Error(), false, "")
		return
	}

	resp, err := c.api.RunExercise(ctx, sel.Topic, sel.Name, code)
	if err != nil {
		c.logger.Warn("submission failed", "topic", sel.Topic, "name", sel.Name, "error", err)
		c.applyRunResult(gen, NetworkErrorPrefix+err.Error(), false, "")
		if c.opts.Refresh == RefreshAlways {
			c.refresh(ctx)
		}
		return
	}

	if resp == nil {
		resp = &models.RunResponse{}
	}
	c.logger.Info("submission graded",
		"topic", sel.Topic,
		"name", sel.Name,
		"passed", resp.Passed,
		"error_type", resp.ErrorType,
	)
	c.applyRunResult(gen, resp.Message(), resp.Passed, resp.ErrorType)
	c.refresh(ctx)
}

// applyRunResult stores a submission result unless the selection it was
// issued for has been replaced.
func (c *Controller) applyRunResult(gen uint64, output string, passed bool, errorType models.ErrorType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.selectionGen {
		c.logger.Debug("dropping stale submission result")
		return
	}
	c.state.Output = output
	c.state.Passed = passed
	c.state.ErrorType = errorType
}

func (c *Controller) refresh(ctx context.Context) {
	if err := c.LoadExercises(ctx); err != nil {
		c.logger.Warn("failed to refresh exercises", "error", err)
	}
}

// Reset puts the skeleton back into the editor and clears the result
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Skeleton == "" || c.editor == nil {
		return
	}
	if err := c.editor.SetValue(c.state.Skeleton); err != nil {
		c.logger.Error("failed to reset editor", "error", err)
		return
	}
	c.state.Output = ""
	c.state.Passed = false
	c.state.ErrorType = ""
}

// ResetStats deletes the current exercise's stats after the confirmer
// agrees, then refreshes the listings whatever the delete outcome.
func (c *Controller) ResetStats(ctx context.Context) {
	c.mu.Lock()
	cur := c.state.Current
	c.mu.Unlock()

	if cur == nil || c.confirmer == nil {
		return
	}

	ok, err := c.confirmer.Confirm(ctx, ResetStatsPrompt)
	if err != nil {
		c.logger.Warn("confirmation failed", "error", err)
		return
	}
	if !ok {
		return
	}

	if err := c.api.ResetStats(ctx, cur.Topic, cur.Name); err != nil {
		c.logger.Error("failed to reset stats", "topic", cur.Topic, "name", cur.Name, "error", err)
	} else {
		c.logger.Info("stats reset", "topic", cur.Topic, "name", cur.Name)
	}
	c.refresh(ctx)
}

// OutputClass derives the styling of the output panel
func (c *Controller) OutputClass() OutputClass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return outputClass(c.state)
}

// CurrentPasses returns the pass count of the current exercise, 0 if unknown
func (c *Controller) CurrentPasses() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Current == nil {
		return 0
	}
	ex, _ := c.state.Exercises.Find(c.state.Current.Topic, c.state.Current.Name)
	return ex.Passes
}

// ToggleTheme flips dark mode, persists it and restyles display and editor
func (c *Controller) ToggleTheme(ctx context.Context) {
	c.themeMu.Lock()
	defer c.themeMu.Unlock()

	c.mu.Lock()
	c.state.DarkMode = !c.state.DarkMode
	dark := c.state.DarkMode
	ed := c.editor
	c.mu.Unlock()

	theme := themeFor(dark)
	if c.prefs != nil {
		if err := c.prefs.Set(ctx, ThemeKey, string(theme)); err != nil {
			c.logger.Warn("failed to persist theme", "theme", theme, "error", err)
		}
	}
	if c.display != nil {
		c.display.ApplyTheme(theme)
	}
	if ed != nil {
		ed.SetTheme(editorThemeFor(dark))
	}
}

// Editor returns the editor widget, nil before it is created
func (c *Controller) Editor() Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Categories = maps.Clone(c.state.Categories)
	s.Exercises = maps.Clone(c.state.Exercises)
	if c.state.Current != nil {
		cur := *c.state.Current
		s.Current = &cur
	}
	return s
}
