package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/drills/internal/editor"
	"github.com/terra-clan/drills/internal/models"
	"github.com/terra-clan/drills/internal/prefs"
	"github.com/terra-clan/drills/pkg/client"
)

type fakeAPI struct {
	mu sync.Mutex

	categories    models.Categories
	exercises     models.ExercisesByTopic
	categoriesErr error
	exercisesErr  error

	code      map[string]string
	getErr    error
	getHook   func(topic, name string)
	runResp   *models.RunResponse
	runErr    error
	runHook   func()
	statsErr  error
	lastCode  string
	listCalls int32
	runCalls  int32
	getCalls  int32
	statCalls int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		categories: models.Categories{
			"DSA": {"arrays", "trees", "graphs"},
			"ML":  {"attention"},
		},
		exercises: models.ExercisesByTopic{
			"arrays": {{Name: "two_sum", Passes: 2}},
			"trees":  {{Name: "bfs"}, {Name: "dfs", Passes: 1}},
		},
		code: map[string]string{
			"arrays/two_sum": "def two_sum():\n    pass\n",
			"trees/bfs":      "def bfs(root):\n    pass\n\n\nif __name__ == \"__main__\":\n    run_bfs_tests(bfs)\n",
		},
	}
}

func (f *fakeAPI) ListCategories(ctx context.Context) (models.Categories, error) {
	atomic.AddInt32(&f.listCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories, f.categoriesErr
}

func (f *fakeAPI) ListExercises(ctx context.Context) (models.ExercisesByTopic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exercises, f.exercisesErr
}

func (f *fakeAPI) GetExercise(ctx context.Context, topic, name string) (*models.ExerciseDetail, error) {
	atomic.AddInt32(&f.getCalls, 1)
	if f.getHook != nil {
		f.getHook(topic, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	code, ok := f.code[topic+"/"+name]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Detail: "Exercise not found"}
	}
	return &models.ExerciseDetail{Code: code}, nil
}

func (f *fakeAPI) RunExercise(ctx context.Context, topic, name, code string) (*models.RunResponse, error) {
	atomic.AddInt32(&f.runCalls, 1)
	if f.runHook != nil {
		f.runHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCode = code
	return f.runResp, f.runErr
}

func (f *fakeAPI) ResetStats(ctx context.Context, topic, name string) error {
	atomic.AddInt32(&f.statCalls, 1)
	return f.statsErr
}

type fakeConfirmer struct {
	answer bool
	err    error
	asked  []string
}

func (f *fakeConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	f.asked = append(f.asked, prompt)
	return f.answer, f.err
}

type fakeDisplay struct {
	themes []Theme
}

func (d *fakeDisplay) ApplyTheme(theme Theme) {
	d.themes = append(d.themes, theme)
}

type harness struct {
	api       *fakeAPI
	store     *prefs.MemoryStore
	confirmer *fakeConfirmer
	display   *fakeDisplay
	created   int
	ctrl      *Controller
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		api:       newFakeAPI(),
		store:     prefs.NewMemoryStore(),
		confirmer: &fakeConfirmer{answer: true},
		display:   &fakeDisplay{},
	}

	opts := DefaultOptions()
	opts.Display = h.display
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if mutate != nil {
		mutate(&opts)
	}

	factory := func(o editor.Options) (Editor, error) {
		h.created++
		return editor.NewBuffer(o), nil
	}
	h.ctrl = NewController(h.api, factory, h.store, h.confirmer, opts)
	return h
}

func (h *harness) editorText(t *testing.T) string {
	t.Helper()
	text, err := h.ctrl.Editor().Value()
	require.NoError(t, err)
	return text
}

func TestInitLoadsListingsAndCreatesEditorOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.ctrl.Init(ctx)
	h.ctrl.Init(ctx)

	assert.Equal(t, 1, h.created)
	s := h.ctrl.Snapshot()
	assert.Equal(t, "DSA", s.ActiveCategory)
	assert.Len(t, s.Categories, 2)
	assert.Len(t, s.Exercises, 2)
	assert.False(t, s.DarkMode)
	assert.Equal(t, editor.Placeholder, h.editorText(t))
	assert.Equal(t, editor.ThemeDefault, h.ctrl.Editor().Theme())
}

func TestInitRestoresDarkTheme(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Set(context.Background(), ThemeKey, "dark"))

	h.ctrl.Init(context.Background())

	assert.True(t, h.ctrl.Snapshot().DarkMode)
	assert.Equal(t, editor.ThemeMaterialDarker, h.ctrl.Editor().Theme())
	assert.Equal(t, []Theme{ThemeDark}, h.display.themes)
}

func TestInitSoftFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.api.categoriesErr = errors.New("connection refused")

	h.ctrl.Init(context.Background())

	s := h.ctrl.Snapshot()
	assert.Empty(t, s.Categories)
	assert.Empty(t, s.Exercises, "a transport failure keeps both mappings")
	assert.NotNil(t, h.ctrl.Editor())
}

func TestLoadExercisesKeepsMappingOnStatusError(t *testing.T) {
	h := newHarness(t, nil)
	h.api.categoriesErr = &client.APIError{StatusCode: http.StatusInternalServerError}

	require.NoError(t, h.ctrl.LoadExercises(context.Background()))

	s := h.ctrl.Snapshot()
	assert.Empty(t, s.Categories)
	assert.Len(t, s.Exercises, 2)
}

func TestFilteredExercises(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Init(context.Background())

	got := h.ctrl.FilteredExercises()
	require.Len(t, got, 2, "graphs has no exercises and is omitted")
	assert.Equal(t, "arrays", got[0].Topic)
	assert.Equal(t, "trees", got[1].Topic)
	assert.Equal(t, []string{"arrays", "trees", "graphs"}, h.ctrl.Topics())

	h.ctrl.SetCategory("ML")
	assert.Empty(t, h.ctrl.FilteredExercises())

	h.ctrl.SetCategory("nope")
	assert.Empty(t, h.ctrl.Topics())
	assert.Empty(t, h.ctrl.FilteredExercises())
}

func TestSelectSetsSkeletonAndFocusesEditor(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)

	h.ctrl.Select(ctx, "arrays", "two_sum")

	s := h.ctrl.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, models.Selection{Topic: "arrays", Name: "two_sum"}, *s.Current)
	assert.Equal(t, "def two_sum():\n    pass\n", s.Skeleton)
	assert.Equal(t, s.Skeleton, h.editorText(t))
	assert.True(t, h.ctrl.Editor().(*editor.Buffer).Focused())
}

func TestSelectStripsEntryPoint(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Select(context.Background(), "trees", "bfs")
	assert.Equal(t, "def bfs(root):\n    pass\n", h.ctrl.Snapshot().Skeleton)
}

func TestSelectVerbatimPolicy(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Skeleton = Verbatim })
	h.ctrl.Select(context.Background(), "trees", "bfs")
	assert.Equal(t, h.api.code["trees/bfs"], h.ctrl.Snapshot().Skeleton)
}

func TestSelectClearsPreviousResult(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")

	h.api.runResp = &models.RunResponse{Output: "Traceback", ErrorType: models.ErrorRuntime}
	h.ctrl.Submit(ctx)
	require.Equal(t, "Traceback", h.ctrl.Snapshot().Output)

	h.ctrl.Select(ctx, "trees", "bfs")

	s := h.ctrl.Snapshot()
	assert.Empty(t, s.Output)
	assert.False(t, s.Passed)
	assert.Empty(t, s.ErrorType)
}

func TestSelectFailureKeepsSelection(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")

	h.ctrl.Select(ctx, "arrays", "missing")
	s := h.ctrl.Snapshot()
	assert.Equal(t, LoadExerciseFailed, s.Output)
	assert.Equal(t, "two_sum", s.Current.Name)
	assert.Equal(t, "def two_sum():\n    pass\n", s.Skeleton)

	h.api.getErr = errors.New("dial tcp: connection refused")
	h.ctrl.Select(ctx, "trees", "bfs")
	s = h.ctrl.Snapshot()
	assert.Equal(t, "dial tcp: connection refused", s.Output)
	assert.Equal(t, "two_sum", s.Current.Name)
}

func TestSubmitNoopWithoutSelection(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Init(context.Background())
	before := h.ctrl.Snapshot()

	h.ctrl.Submit(context.Background())

	assert.Equal(t, int32(0), atomic.LoadInt32(&h.api.runCalls))
	assert.Equal(t, before, h.ctrl.Snapshot())
}

func TestSubmitSuccess(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")
	require.NoError(t, h.ctrl.Editor().SetValue("def two_sum():\n    return [0, 1]\n"))

	h.api.runResp = &models.RunResponse{Output: "All tests passed", Passed: true}
	h.api.exercises = models.ExercisesByTopic{"arrays": {{Name: "two_sum", Passes: 3}}}
	listsBefore := atomic.LoadInt32(&h.api.listCalls)

	h.ctrl.Submit(ctx)

	s := h.ctrl.Snapshot()
	assert.Equal(t, "All tests passed", s.Output)
	assert.True(t, s.Passed)
	assert.False(t, s.Loading)
	assert.Equal(t, "def two_sum():\n    return [0, 1]\n", h.api.lastCode)
	assert.Equal(t, listsBefore+1, atomic.LoadInt32(&h.api.listCalls))
	assert.Equal(t, 3, h.ctrl.CurrentPasses())
	assert.Equal(t, OutputClass{Status: OutputSuccess}, h.ctrl.OutputClass())
}

func TestSubmitFallbackMessages(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Select(ctx, "arrays", "two_sum")

	h.api.runResp = &models.RunResponse{Detail: "Invalid name"}
	h.ctrl.Submit(ctx)
	assert.Equal(t, "Invalid name", h.ctrl.Snapshot().Output)

	h.api.runResp = &models.RunResponse{}
	h.ctrl.Submit(ctx)
	s := h.ctrl.Snapshot()
	assert.Equal(t, models.UnknownErrorMessage, s.Output)
	assert.False(t, s.Passed)
}

func TestSubmitTransportFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")
	h.api.runErr = errors.New("request failed: EOF")
	listsBefore := atomic.LoadInt32(&h.api.listCalls)

	h.ctrl.Submit(ctx)

	s := h.ctrl.Snapshot()
	assert.True(t, strings.HasPrefix(s.Output, "Network error:"))
	assert.False(t, s.Passed)
	assert.False(t, s.Loading)
	assert.Equal(t, listsBefore, atomic.LoadInt32(&h.api.listCalls), "no refresh on failure by default")
	assert.Equal(t, "error", h.ctrl.OutputClass().String())
}

func TestSubmitTransportFailureRefreshAlways(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Refresh = RefreshAlways })
	ctx := context.Background()
	h.ctrl.Select(ctx, "arrays", "two_sum")
	h.api.runErr = errors.New("request failed: EOF")

	h.ctrl.Submit(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.api.listCalls))
	assert.False(t, h.ctrl.Snapshot().Loading)
}

func TestSubmitIsNotReentrant(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Select(ctx, "arrays", "two_sum")

	started := make(chan struct{})
	release := make(chan struct{})
	h.api.runHook = func() {
		close(started)
		<-release
	}
	h.api.runResp = &models.RunResponse{Output: "ok", Passed: true}

	done := make(chan struct{})
	go func() {
		h.ctrl.Submit(ctx)
		close(done)
	}()

	<-started
	assert.True(t, h.ctrl.Snapshot().Loading)
	h.ctrl.Submit(ctx)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.api.runCalls))

	close(release)
	<-done
	assert.False(t, h.ctrl.Snapshot().Loading)
}

func TestStaleSubmissionResultIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Select(ctx, "arrays", "two_sum")

	started := make(chan struct{})
	release := make(chan struct{})
	h.api.runHook = func() {
		close(started)
		<-release
	}
	h.api.runResp = &models.RunResponse{Output: "All tests passed", Passed: true}

	done := make(chan struct{})
	go func() {
		h.ctrl.Submit(ctx)
		close(done)
	}()

	<-started
	h.ctrl.Select(ctx, "trees", "bfs")
	close(release)
	<-done

	s := h.ctrl.Snapshot()
	assert.Equal(t, "bfs", s.Current.Name)
	assert.Empty(t, s.Output)
	assert.False(t, s.Passed)
	assert.False(t, s.Loading)
}

func TestStaleSelectResponseIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	h.api.getHook = func(topic, name string) {
		if name == "two_sum" {
			close(started)
			<-release
		}
	}

	done := make(chan struct{})
	go func() {
		h.ctrl.Select(ctx, "arrays", "two_sum")
		close(done)
	}()

	<-started
	h.ctrl.Select(ctx, "trees", "bfs")
	close(release)
	<-done

	assert.Equal(t, "bfs", h.ctrl.Snapshot().Current.Name)
	assert.Equal(t, "def bfs(root):\n    pass\n", h.editorText(t))
}

func TestReset(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)

	// No skeleton yet: nothing happens.
	h.ctrl.Reset()
	assert.Equal(t, editor.Placeholder, h.editorText(t))

	h.ctrl.Select(ctx, "arrays", "two_sum")
	require.NoError(t, h.ctrl.Editor().SetValue("garbage"))
	h.api.runResp = &models.RunResponse{Output: "SyntaxError", ErrorType: models.ErrorSyntax}
	h.ctrl.Submit(ctx)

	h.ctrl.Reset()

	s := h.ctrl.Snapshot()
	assert.Equal(t, s.Skeleton, h.editorText(t))
	assert.Empty(t, s.Output)
	assert.False(t, s.Passed)
	assert.Empty(t, s.ErrorType)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.api.getCalls), "reset does not refetch")
}

func TestResetStats(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.ctrl.ResetStats(ctx)
	assert.Empty(t, h.confirmer.asked, "no selection, no prompt")

	h.ctrl.Select(ctx, "arrays", "two_sum")
	h.ctrl.ResetStats(ctx)

	assert.Equal(t, []string{ResetStatsPrompt}, h.confirmer.asked)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.api.statCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.api.listCalls))
}

func TestResetStatsDeclined(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Select(ctx, "arrays", "two_sum")

	h.confirmer.answer = false
	h.ctrl.ResetStats(ctx)

	h.confirmer.answer = true
	h.confirmer.err = io.EOF
	h.ctrl.ResetStats(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&h.api.statCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.api.listCalls))
}

func TestResetStatsRefreshesAfterFailedDelete(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Select(ctx, "arrays", "two_sum")
	h.api.statsErr = errors.New("request failed: timeout")

	h.ctrl.ResetStats(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.api.listCalls))
}

func TestCurrentPasses(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	assert.Equal(t, 0, h.ctrl.CurrentPasses())

	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")
	assert.Equal(t, 2, h.ctrl.CurrentPasses())

	h.ctrl.Select(ctx, "trees", "bfs")
	assert.Equal(t, 0, h.ctrl.CurrentPasses())

	h.api.code["graphs/dijkstra"] = "def dijkstra(g):\n    pass\n"
	h.ctrl.Select(ctx, "graphs", "dijkstra")
	assert.Equal(t, 0, h.ctrl.CurrentPasses(), "unknown exercise")
}

func TestOutputClass(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"empty", State{}, ""},
		{"passed", State{Passed: true, Output: "x", ErrorType: models.ErrorRuntime}, "success"},
		{"tagged", State{Output: "Timeout", ErrorType: models.ErrorTimeout}, "error timeout-error"},
		{"untagged", State{Output: "Network error: EOF"}, "error"},
		{"kind without output", State{ErrorType: models.ErrorSyntax}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputClass(tt.state).String())
		})
	}
}

func TestToggleTheme(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)

	h.ctrl.ToggleTheme(ctx)
	assert.True(t, h.ctrl.Snapshot().DarkMode)
	assert.Equal(t, editor.ThemeMaterialDarker, h.ctrl.Editor().Theme())
	v, _, _ := h.store.Get(ctx, ThemeKey)
	assert.Equal(t, "dark", v)

	h.ctrl.ToggleTheme(ctx)
	assert.False(t, h.ctrl.Snapshot().DarkMode)
	assert.Equal(t, editor.ThemeDefault, h.ctrl.Editor().Theme())
	v, _, _ = h.store.Get(ctx, ThemeKey)
	assert.Equal(t, "light", v)

	assert.Equal(t, []Theme{ThemeLight, ThemeDark, ThemeLight}, h.display.themes)
}

func TestToggleThemeBeforeEditorExists(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.ToggleTheme(context.Background())

	assert.Nil(t, h.ctrl.Editor())
	assert.True(t, h.ctrl.Snapshot().DarkMode)
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")

	s := h.ctrl.Snapshot()
	s.Current.Name = "mutated"
	delete(s.Categories, "DSA")

	fresh := h.ctrl.Snapshot()
	assert.Equal(t, "two_sum", fresh.Current.Name)
	assert.Contains(t, fresh.Categories, "DSA")
}

type flakyEditor struct {
	*editor.Buffer
	setErr error
}

func (e *flakyEditor) SetValue(text string) error {
	if e.setErr != nil {
		return e.setErr
	}
	return e.Buffer.SetValue(text)
}

func TestSelectEditorWriteFailureKeepsSelection(t *testing.T) {
	h := newHarness(t, nil)
	ed := &flakyEditor{Buffer: editor.NewBuffer(editor.DefaultOptions())}
	h.ctrl = NewController(h.api, func(editor.Options) (Editor, error) { return ed, nil }, h.store, h.confirmer, DefaultOptions())
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")

	ed.setErr = errors.New("disk full")
	h.ctrl.Select(ctx, "trees", "bfs")

	s := h.ctrl.Snapshot()
	assert.Equal(t, "Editor error: disk full", s.Output)
	assert.Equal(t, "arrays/two_sum", s.Current.String())
	assert.Equal(t, "def two_sum():\n    pass\n", s.Skeleton)

	h.api.runResp = &models.RunResponse{Passed: true, Output: "ok"}
	h.ctrl.Submit(ctx)
	assert.Equal(t, "def two_sum():\n    pass\n", h.api.lastCode)
	assert.Equal(t, "ok", h.ctrl.Snapshot().Output)
}

func TestSubmitNilResponse(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)
	h.ctrl.Select(ctx, "arrays", "two_sum")

	h.api.runResp = nil
	h.api.runErr = nil
	require.NotPanics(t, func() { h.ctrl.Submit(ctx) })

	s := h.ctrl.Snapshot()
	assert.Equal(t, models.UnknownErrorMessage, s.Output)
	assert.False(t, s.Passed)
	assert.False(t, s.Loading)
}

func TestConcurrentToggleThemePersistsFinalTheme(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.ctrl.Init(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 51; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ctrl.ToggleTheme(ctx)
		}()
	}
	wg.Wait()

	dark := h.ctrl.Snapshot().DarkMode
	assert.True(t, dark)
	v, ok, err := h.store.Get(ctx, ThemeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, string(themeFor(dark)), v)
	assert.Equal(t, editorThemeFor(dark), h.ctrl.Editor().Theme())
}
