package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

// Predicate is one named rule deciding that cur is a new state relative to
// prev.
type Predicate struct {
	Name  string
	Match func(prev, cur browser.Fingerprint) bool
}

// DefaultPredicates are evaluated in order; the first match wins.
var DefaultPredicates = []Predicate{
	{
		Name: "url_changed",
		Match: func(prev, cur browser.Fingerprint) bool {
			return prev.CanonicalURL != cur.CanonicalURL
		},
	},
	{
		Name: "modal_opened",
		Match: func(prev, cur browser.Fingerprint) bool {
			return cur.ModalCount > prev.ModalCount
		},
	},
	{
		Name: "structure_changed",
		Match: func(prev, cur browser.Fingerprint) bool {
			return prev.FormCount != cur.FormCount || prev.ElementCount != cur.ElementCount
		},
	},
	{
		Name: "message_appeared",
		Match: func(prev, cur browser.Fingerprint) bool {
			return cur.HasMessage && !prev.HasMessage
		},
	},
}

// Fingerprinter is the part of the snapshotter the detector needs.
type Fingerprinter interface {
	Fingerprint() browser.Fingerprint
}

// Detector decides whether the page reached a state worth capturing. It
// remembers the last captured fingerprint, which only moves on Confirm.
type Detector struct {
	source     Fingerprinter
	predicates []Predicate
	previous   *browser.Fingerprint

	interval time.Duration
	polls    int
	settle   time.Duration
	sleep    func(time.Duration)

	logger *zap.Logger
}

func NewDetector(source Fingerprinter, cfg config.EngineConfig, sleep func(time.Duration), logger *zap.Logger) *Detector {
	if sleep == nil {
		sleep = time.Sleep
	}
	polls := cfg.StabilizePolls
	if polls <= 0 {
		polls = 5
	}
	return &Detector{
		source:     source,
		predicates: DefaultPredicates,
		interval:   cfg.StabilizeInterval,
		polls:      polls,
		settle:     cfg.SettleDelay,
		sleep:      sleep,
		logger:     logger.Named("detector"),
	}
}

// Stabilize waits for the fingerprint to stop changing: two consecutive
// equal polls, or the poll budget runs out. Either way it returns the last
// fingerprint seen.
func (d *Detector) Stabilize() browser.Fingerprint {
	if d.settle > 0 {
		d.sleep(d.settle)
	}
	last := d.source.Fingerprint()
	for i := 1; i < d.polls; i++ {
		d.sleep(d.interval)
		cur := d.source.Fingerprint()
		if cur.Equal(last) {
			return cur
		}
		last = cur
	}
	d.logger.Debug("page did not settle within poll budget", zap.Int("polls", d.polls))
	return last
}

// IsNewState evaluates the predicates against prev. A nil prev means nothing
// has been captured yet. A degraded fingerprint never counts as new.
func (d *Detector) IsNewState(prev *browser.Fingerprint, cur browser.Fingerprint) (bool, string) {
	if cur.Degraded {
		return false, ""
	}
	if prev == nil {
		return true, "initial"
	}
	for _, p := range d.predicates {
		if p.Match(*prev, cur) {
			return true, p.Name
		}
	}
	return false, ""
}

// Check stabilizes the page and compares it with the last captured state.
// It does not move the baseline; call Confirm after a successful capture.
func (d *Detector) Check() (browser.Fingerprint, bool, string) {
	cur := d.Stabilize()
	isNew, reason := d.IsNewState(d.previous, cur)
	return cur, isNew, reason
}

// Confirm records fp as the last captured state.
func (d *Detector) Confirm(fp browser.Fingerprint) {
	d.previous = &fp
}
