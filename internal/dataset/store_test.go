package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *Store {
	return NewStore(t.TempDir(), zaptest.NewLogger(t))
}

func TestWorkflowName(t *testing.T) {
	assert.Equal(t, "linear_create_a_project", WorkflowName("linear", "Create a project"))
	long := WorkflowName("notion", strings.Repeat("word ", 20))
	assert.Len(t, long, len("notion_")+50)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "linear_create_project__v2_", SafeName("Linear create/project (v2)"))
	assert.Equal(t, "caf__", SafeName("café!"))
}

func TestCreateRunDirectoryUnique(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	name1, dir1, err := s.CreateRunDirectory("linear_create project")
	require.NoError(t, err)
	name2, dir2, err := s.CreateRunDirectory("linear_create project")
	require.NoError(t, err)

	assert.NotEqual(t, name1, name2, "same second must still yield distinct runs")
	assert.True(t, strings.HasPrefix(name1, "linear_create_project_20250314_092653_"))
	assert.DirExists(t, dir1)
	assert.DirExists(t, dir2)
	assert.Equal(t, filepath.Join(s.Root(), name1), dir1)
}

func TestSaveAndLoadResult(t *testing.T) {
	s := newTestStore(t)
	name, dir, err := s.CreateRunDirectory("linear_create_project")
	require.NoError(t, err)

	action := "Click New Project"
	res := &WorkflowResult{
		RunID:           "abc",
		RunName:         name,
		TaskDescription: "create project",
		App:             "linear",
		Timestamp:       time.Now().UTC().Truncate(time.Second),
		Success:         true,
		TotalStates:     2,
		States: []CapturedState{
			{Sequence: 1, Filename: "001_state_x.jpg"},
			{Sequence: 2, Filename: "002_state_x.jpg", ActionTaken: &action},
		},
		DurationSeconds: 3.5,
	}
	require.NoError(t, s.SaveResult(dir, res))
	assert.NoFileExists(t, filepath.Join(dir, MetadataFile+".tmp"))

	byName, err := s.LoadResult(name)
	require.NoError(t, err)
	assert.Equal(t, res, byName)

	byBase, err := s.LoadResult("linear_create_project")
	require.NoError(t, err)
	assert.Equal(t, name, byBase.RunName)
	assert.Nil(t, byBase.States[0].ActionTaken)
	assert.Equal(t, action, *byBase.States[1].ActionTaken)
}

func TestLoadResultPicksMostRecent(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, ts := range []time.Time{base, base.Add(2 * time.Hour), base.Add(time.Hour)} {
		name, dir, err := s.CreateRunDirectory("app_task")
		require.NoError(t, err)
		require.NoError(t, s.SaveResult(dir, &WorkflowResult{RunName: name, App: "app", Timestamp: ts, Iterations: i}))
	}

	res, err := s.LoadResult("app_task")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
}

func TestLoadResultMatchesWholeWorkflowName(t *testing.T) {
	s := newTestStore(t)
	name, dir, err := s.CreateRunDirectory("linear_create_a_new_project")
	require.NoError(t, err)
	require.NoError(t, s.SaveResult(dir, &WorkflowResult{RunName: name, App: "linear"}))

	_, err = s.LoadResult("linear_create")
	assert.ErrorIs(t, err, ErrRunNotFound)

	res, err := s.LoadResult("linear_create_a_new_project")
	require.NoError(t, err)
	assert.Equal(t, name, res.RunName)
}

func TestRunOf(t *testing.T) {
	assert.True(t, runOf("app_task_20250101_120000_ab12cd34", "app_task_"))
	assert.False(t, runOf("app_task_more_20250101_120000_ab12cd34", "app_task_"))
	assert.False(t, runOf("app_task_latest", "app_task_"))
	assert.False(t, runOf("other_20250101_120000_ab12cd34", "app_task_"))
}

func TestLoadResultNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadResult("nothing_here")
	assert.ErrorIs(t, err, ErrRunNotFound)

	missing := NewStore(filepath.Join(t.TempDir(), "absent"), zaptest.NewLogger(t))
	_, err = missing.LoadResult("x")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, app := range []string{"a", "b", "c"} {
		name, dir, err := s.CreateRunDirectory(app + "_task")
		require.NoError(t, err)
		require.NoError(t, s.SaveResult(dir, &WorkflowResult{
			RunName: name, App: app, TaskDescription: "task",
			Timestamp: base.Add(time.Duration(i) * time.Minute), Success: i%2 == 0,
		}))
	}
	// A directory without metadata and a stray file are ignored.
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "incomplete"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].App)
	assert.Equal(t, "b", runs[1].App)
	assert.Equal(t, "a", runs[2].App)
	assert.True(t, runs[0].Success)
}

func TestListRunsMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"), zaptest.NewLogger(t))
	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestArtifacts(t *testing.T) {
	s := newTestStore(t)
	_, dir, err := s.CreateRunDirectory("x")
	require.NoError(t, err)

	require.NoError(t, s.SaveArtifact(dir, "001_state.jpg", []byte{0xff, 0xd8}))
	require.NoError(t, s.SaveJSONArtifact(dir, "001_dom.json", map[string]int{"forms": 1}))
	require.NoError(t, s.SaveSummary(dir, "# Report"))

	data, err := os.ReadFile(filepath.Join(dir, "001_dom.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"forms": 1}`, string(data))
	assert.FileExists(t, filepath.Join(dir, SummaryFile))
}
