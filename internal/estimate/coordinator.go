// Package estimate keeps a best-effort token estimate for the documents being
// edited. Edits are debounced; every edit bumps a generation and a result is
// applied only if its generation is still the current one.
package estimate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/scoring"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultTimeout  = 30 * time.Second
)

// Estimator is the backend call. *scoring.Client implements it.
type Estimator interface {
	Estimate(ctx context.Context, resume, jd document.Source) (*scoring.TokenEstimate, error)
}

// Timer is the part of *time.Timer the coordinator needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is used when none is set.
type AfterFunc func(d time.Duration, f func()) Timer

type Config struct {
	// Debounce is the quiet window after the last edit.
	Debounce time.Duration
	// Timeout bounds a single estimate call. Zero means no timeout.
	Timeout time.Duration
	// Active reports whether the owner still wants estimates. It is called
	// without the coordinator lock held.
	Active func() bool
	// OnChange is called after every visible change of State.
	OnChange  func(State)
	AfterFunc AfterFunc
}

// State is a snapshot of the coordinator.
type State struct {
	Estimate   *scoring.TokenEstimate
	Message    string
	Pending    bool
	Generation uint64
}

type Coordinator struct {
	estimator Estimator
	logger    *zap.Logger
	cfg       Config

	mu         sync.Mutex
	generation uint64
	timer      Timer
	pending    bool
	estimate   *scoring.TokenEstimate
	message    string
}

// New returns a coordinator. Zero Debounce falls back to DefaultDebounce.
func New(estimator Estimator, logger *zap.Logger, cfg Config) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}

	return &Coordinator{
		estimator: estimator,
		logger:    logger,
		cfg:       cfg,
	}
}

// Eligible reports whether an estimate can be requested for the pair.
// Only files are estimated; pasted text never is.
func Eligible(resume, jd document.Source) bool {
	return resume.Mode == document.ModeFile && jd.Mode == document.ModeFile &&
		resume.HasData() && jd.HasData()
}

// Request records an edit. Any pending timer is replaced and any call in
// flight becomes stale. For an eligible pair one call is made once the quiet
// window passes without further edits; otherwise the current estimate is
// cleared and nothing is sent.
func (c *Coordinator) Request(resume, jd document.Source) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.stopTimerLocked()

	if c.estimator == nil || !Eligible(resume, jd) {
		changed := c.estimate != nil || c.message != "" || c.pending
		c.estimate = nil
		c.message = ""
		c.pending = false
		state := c.stateLocked()
		c.mu.Unlock()

		if changed {
			c.notify(state)
		}
		return
	}

	c.pending = true
	c.timer = c.cfg.AfterFunc(c.cfg.Debounce, func() {
		c.dispatch(gen, resume, jd)
	})
	state := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug("estimate scheduled", zap.Uint64("generation", gen), zap.Duration("debounce", c.cfg.Debounce))
	c.notify(state)
}

// Stop makes any pending or in-flight estimate stale. The last estimate is kept.
func (c *Coordinator) Stop() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.stopTimerLocked()
	c.pending = false
}

// Reset stops the coordinator and forgets the estimate and message.
func (c *Coordinator) Reset() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.stopTimerLocked()
	c.pending = false
	c.estimate = nil
	c.message = ""
}

func (c *Coordinator) Snapshot() State {
	if c == nil {
		return State{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked()
}

func (c *Coordinator) dispatch(gen uint64, resume, jd document.Source) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	if !c.active() {
		c.settle(gen)
		c.logger.Debug("estimate skipped", zap.Uint64("generation", gen), zap.String("reason", "inactive"))
		return
	}

	ctx := context.Background()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.logger.Debug("requesting estimate", zap.Uint64("generation", gen))
	estimate, err := c.estimator.Estimate(ctx, resume, jd)

	c.apply(gen, estimate, err)
}

// apply re-reads the stage and the generation instead of trusting what
// dispatch saw.
func (c *Coordinator) apply(gen uint64, estimate *scoring.TokenEstimate, err error) {
	if !c.active() {
		c.settle(gen)
		c.logger.Debug("dropping estimate", zap.Uint64("generation", gen), zap.String("reason", "inactive"))
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		current := c.generation
		c.mu.Unlock()
		c.logger.Debug("dropping estimate",
			zap.Uint64("generation", gen),
			zap.Uint64("current", current),
			zap.String("reason", "stale"),
		)
		return
	}

	c.pending = false
	if err != nil {
		c.estimate = nil
		c.message = scoring.Describe(err)
	} else {
		c.estimate = estimate
		c.message = ""
	}
	state := c.stateLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("estimate failed", zap.Error(err))
	}

	c.notify(state)
}

// settle clears the pending flag of a dropped dispatch if it is still current.
func (c *Coordinator) settle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == c.generation {
		c.pending = false
	}
}

func (c *Coordinator) active() bool {
	return c.cfg.Active == nil || c.cfg.Active()
}

func (c *Coordinator) notify(state State) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(state)
	}
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) stateLocked() State {
	return State{
		Estimate:   c.estimate,
		Message:    c.message,
		Pending:    c.pending,
		Generation: c.generation,
	}
}
