package agent

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
)

const artifactTimestamp = "20060102_150405"

// ArtifactStore persists capture files into a run directory.
type ArtifactStore interface {
	SaveArtifact(dir, filename string, data []byte) error
	SaveJSONArtifact(dir, filename string, v interface{}) error
}

// domDumper is satisfied by *browser.Snapshotter.
type domDumper interface {
	DOMDump() (*browser.DOMDump, error)
}

// Recorder writes captured states for one run and numbers them 1..N. A
// sequence number is only consumed once the screenshot is on disk.
type Recorder struct {
	drv    browser.Driver
	dumper domDumper
	store  ArtifactStore
	dir    string
	logger *zap.Logger
	now    func() time.Time

	states    []dataset.CapturedState
	lastImage []byte
	lastURL   string
}

func NewRecorder(drv browser.Driver, dumper domDumper, store ArtifactStore, dir string, now func() time.Time, logger *zap.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		drv:    drv,
		dumper: dumper,
		store:  store,
		dir:    dir,
		now:    now,
		logger: logger.Named("recorder"),
	}
}

// Capture screenshots the page and records a new state described by fp.
// action is nil for the initial state.
func (r *Recorder) Capture(fp browser.Fingerprint, action *string) (*dataset.CapturedState, error) {
	img, err := r.drv.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("screenshot: empty image")
	}

	seq := len(r.states) + 1
	ts := r.now()
	stamp := ts.Format(artifactTimestamp)
	filename := fmt.Sprintf("%03d_state_%s.jpg", seq, stamp)
	if err := r.store.SaveArtifact(r.dir, filename, img); err != nil {
		return nil, err
	}

	domFilename := fmt.Sprintf("%03d_dom_%s.json", seq, stamp)
	if dump, err := r.dumper.DOMDump(); err != nil {
		r.logger.Warn("dom dump failed", zap.Int("seq", seq), zap.Error(err))
		domFilename = ""
	} else if err := r.store.SaveJSONArtifact(r.dir, domFilename, dump); err != nil {
		r.logger.Warn("dom dump not saved", zap.Int("seq", seq), zap.Error(err))
		domFilename = ""
	}

	unique := seq == 1 || fp.CanonicalURL != r.lastURL
	state := dataset.CapturedState{
		Sequence:     seq,
		Filename:     filename,
		DOMFilename:  domFilename,
		ActionTaken:  action,
		HasURL:       unique,
		IsModal:      fp.ModalCount > 0,
		IsForm:       fp.FormCount > 0,
		ElementCount: fp.ElementCount,
		Timestamp:    ts,
	}
	if unique {
		state.URL = fp.URL
	}

	r.states = append(r.states, state)
	r.lastImage = img
	r.lastURL = fp.CanonicalURL

	r.logger.Info("state captured",
		zap.Int("seq", seq),
		zap.String("file", filename),
		zap.String("url", fp.URL),
		zap.Bool("modal", state.IsModal))
	return &state, nil
}

// States returns a copy of the captured states in sequence order.
func (r *Recorder) States() []dataset.CapturedState {
	out := make([]dataset.CapturedState, len(r.states))
	copy(out, r.states)
	return out
}

// LastImage is the screenshot of the most recent capture.
func (r *Recorder) LastImage() []byte {
	return r.lastImage
}
