package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	MetadataFile = "metadata.json"
	SummaryFile  = "summary.md"

	timestampLayout = "20060102_150405"
)

// ErrRunNotFound is returned by LoadResult when no run matches.
var ErrRunNotFound = errors.New("run not found")

// Store is the append-only dataset tree: one directory per run under root.
// Run directories are never shared, so concurrent runs need no locking.
type Store struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(root string, logger *zap.Logger) *Store {
	return &Store{root: root, logger: logger.Named("dataset"), now: time.Now}
}

func (s *Store) Root() string { return s.root }

// WorkflowName derives the base run name from an app and task description.
func WorkflowName(app, task string) string {
	t := strings.ReplaceAll(strings.ToLower(task), " ", "_")
	if r := []rune(t); len(r) > 50 {
		t = string(r[:50])
	}
	return app + "_" + t
}

// SafeName maps name onto [a-z0-9_-].
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// CreateRunDirectory makes a fresh directory for name and returns the unique
// run name and its path. The name is <safe>_<timestamp>_<short id>.
func (s *Store) CreateRunDirectory(name string) (string, string, error) {
	runName := fmt.Sprintf("%s_%s_%s", SafeName(name), s.now().Format(timestampLayout), uuid.NewString()[:8])
	dir := filepath.Join(s.root, runName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create run directory %s: %w", dir, err)
	}
	s.logger.Debug("run directory created", zap.String("dir", dir))
	return runName, dir, nil
}

// SaveResult writes result as metadata.json into dir.
func (s *Store) SaveResult(dir string, result *WorkflowResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, MetadataFile), data); err != nil {
		return err
	}
	s.logger.Info("result saved", zap.String("path", filepath.Join(dir, MetadataFile)))
	return nil
}

// SaveArtifact stores a captured file (screenshot, DOM dump) inside dir.
func (s *Store) SaveArtifact(dir, filename string, data []byte) error {
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", filename, err)
	}
	return nil
}

// SaveJSONArtifact stores v as indented JSON inside dir.
func (s *Store) SaveJSONArtifact(dir, filename string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return s.SaveArtifact(dir, filename, data)
}

func (s *Store) SaveSummary(dir, summary string) error {
	return s.SaveArtifact(dir, SummaryFile, []byte(summary+"\n"))
}

// LoadResult loads a run by its exact run name or, failing that, the most
// recent run whose name starts with the base workflow name.
func (s *Store) LoadResult(name string) (*WorkflowResult, error) {
	if name != "" && !strings.ContainsAny(name, `/\`) {
		if res, err := readResult(filepath.Join(s.root, name)); err == nil {
			return res, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	prefix := SafeName(name) + "_"
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, name)
		}
		return nil, fmt.Errorf("read dataset root: %w", err)
	}

	var best *WorkflowResult
	for _, e := range entries {
		if !e.IsDir() || !runOf(e.Name(), prefix) {
			continue
		}
		res, err := readResult(filepath.Join(s.root, e.Name()))
		if err != nil {
			continue
		}
		if best == nil || res.Timestamp.After(best.Timestamp) {
			best = res
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, name)
	}
	return best, nil
}

// ListRuns summarizes every run with a readable metadata.json, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dataset root: %w", err)
	}

	var runs []RunSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		res, err := readResult(filepath.Join(s.root, e.Name()))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Debug("skipping unreadable run", zap.String("run", e.Name()), zap.Error(err))
			}
			continue
		}
		runs = append(runs, RunSummary{
			Name:      e.Name(),
			App:       res.App,
			Task:      res.TaskDescription,
			Success:   res.Success,
			States:    res.TotalStates,
			Timestamp: res.Timestamp,
		})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

// runSuffix is what CreateRunDirectory appends to the workflow name.
var runSuffix = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}$`)

// runOf reports whether dir was created for the workflow whose name, plus
// the separator, is prefix. Longer workflow names sharing the prefix do not
// match.
func runOf(dir, prefix string) bool {
	rest, ok := strings.CutPrefix(dir, prefix)
	return ok && runSuffix.MatchString(rest)
}

func readResult(dir string) (*WorkflowResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}
	var res WorkflowResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Join(dir, MetadataFile), err)
	}
	if res.RunName == "" {
		res.RunName = filepath.Base(dir)
	}
	return &res, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
