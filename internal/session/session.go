// Package session sequences one scoring session: document intake with a
// debounced estimate, a single scoring call and presentation of the result.
//
// Stages move through Transition only. Failures go back to the most recent
// interactive stage and never forward.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/estimate"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/scoring"
)

var (
	ErrNotReady = errors.New("both documents are required")
	ErrInFlight = errors.New("a submission is already in flight")
	// ErrDiscarded is returned by a Submit whose session was reset meanwhile.
	ErrDiscarded = errors.New("session was reset, result discarded")
)

// Scorer is the scoring call. *scoring.Client implements it.
type Scorer interface {
	Score(ctx context.Context, resume, jd document.Source) (*scoring.ScoreResponse, error)
}

type Options struct {
	Scorer    Scorer
	Estimator estimate.Estimator
	Logger    *zap.Logger

	Debounce        time.Duration
	EstimateTimeout time.Duration
	// OnEstimate is called whenever the estimate shown in input changes.
	OnEstimate func(estimate.State)
	AfterFunc  estimate.AfterFunc
}

// View is a snapshot of the session for the presentation layer.
type View struct {
	ID             string
	Stage          Stage
	Resume         document.Source
	JobDescription document.Source
	// Estimate is only set in the input stage.
	Estimate   estimate.State
	Message    string
	Ready      bool
	InFlight   bool
	Result     *scoring.ScoreResult
	ResumeText string
}

type Session struct {
	id string
	// base carries no session fields; stage changes are logged through it
	// with the session id and the new stage.
	base      *zap.Logger
	logger    *zap.Logger
	scorer    Scorer
	estimates *estimate.Coordinator

	mu         sync.Mutex
	stage      Stage
	resume     document.Source
	jd         document.Source
	inFlight   bool
	epoch      uint64
	result     *scoring.ScoreResult
	resumeText string
	message    string
}

func New(opts Options) *Session {
	id := uuid.NewString()
	base := logger.WithFields(opts.Logger)

	s := &Session{
		id:     id,
		base:   base,
		logger: logger.WithSession(base, id),
		scorer: opts.Scorer,
		stage:  StageLanding,
	}
	s.clearDocumentsLocked()

	s.estimates = estimate.New(opts.Estimator, s.logger.Named("estimate"), estimate.Config{
		Debounce:  opts.Debounce,
		Timeout:   opts.EstimateTimeout,
		Active:    s.acceptsEstimates,
		OnChange:  opts.OnEstimate,
		AfterFunc: opts.AfterFunc,
	})

	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stage
}

// Begin leaves the landing stage.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.moveLocked(EventBegin)
}

// SetDocument replaces the resume or the job description and asks for a new
// estimate. Documents can only change in the input stage.
func (s *Session) SetDocument(src document.Source) error {
	s.mu.Lock()
	if s.stage != StageInput {
		stage := s.stage
		s.mu.Unlock()
		return fmt.Errorf("%w: documents are locked in %s", ErrInvalidTransition, stage)
	}

	switch src.Role {
	case document.RoleResume:
		s.resume = src
	case document.RoleJobDescription:
		s.jd = src
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown document role %q", src.Role)
	}

	s.message = ""
	resume, jd := s.resume, s.jd
	s.mu.Unlock()

	s.logger.Debug("document set", zap.String("role", string(src.Role)), zap.String("document", src.Label()))
	s.estimates.Request(resume, jd)

	return nil
}

// Submit scores the current documents. It blocks until the scoring call
// returns and leaves the session in analysis on success or back in input on
// failure. The documents are handed to the call and not kept.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrInFlight
	}
	if s.stage != StageInput {
		err := fmt.Errorf("%w: %s on %s", ErrInvalidTransition, EventSubmit, s.stage)
		s.mu.Unlock()
		return err
	}
	if !s.resume.HasData() || !s.jd.HasData() {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.scorer == nil {
		s.mu.Unlock()
		return errors.New("scoring client is not configured")
	}

	if err := s.moveLocked(EventSubmit); err != nil {
		s.mu.Unlock()
		return err
	}
	s.inFlight = true
	epoch := s.epoch
	resume, jd := s.resume, s.jd
	s.clearDocumentsLocked()
	s.message = ""
	s.result = nil
	s.resumeText = ""
	s.estimates.Stop()
	s.mu.Unlock()

	s.logger.Info("submitting documents",
		zap.String("resume", resume.Label()),
		zap.String("job_description", jd.Label()),
	)

	started := time.Now()
	resp, err := s.scorer.Score(ctx, resume, jd)
	if err == nil && (resp == nil || resp.Result == nil) {
		err = fmt.Errorf("%w: result is missing", scoring.ErrMalformedResult)
	}

	var resumeText string
	if err == nil {
		resumeText = resp.ResumeText
		if resumeText == "" {
			resumeText = s.localText(resume)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false

	if epoch != s.epoch {
		s.logger.Info("discarding score", zap.String("reason", "session was reset"), zap.Error(err))
		return ErrDiscarded
	}

	if err != nil {
		s.message = scoring.Describe(err)
		s.estimates.Reset()
		s.logger.Warn("scoring failed", zap.Error(err), zap.Duration("took", time.Since(started)))
		if moveErr := s.moveLocked(EventScoreFailed); moveErr != nil {
			return errors.Join(err, moveErr)
		}
		return err
	}

	s.result = resp.Result
	s.resumeText = resumeText
	s.logger.Info("got score",
		zap.Int("questions", len(resp.Result.Questions)),
		zap.Float64("average_score", resp.Result.AverageScore),
		zap.Duration("took", time.Since(started)),
	)

	return s.moveLocked(EventScoreSucceeded)
}

// Reset returns to landing from any stage and forgets everything. A scoring
// call still in flight is not aborted; its result is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.clearDocumentsLocked()
	s.result = nil
	s.resumeText = ""
	s.message = ""
	s.estimates.Reset()

	// Reset is valid from every stage
	_ = s.moveLocked(EventReset)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		Stage:          s.stage,
		Resume:         s.resume,
		JobDescription: s.jd,
		Message:        s.message,
		InFlight:       s.inFlight,
		Result:         s.result,
		ResumeText:     s.resumeText,
	}

	if s.stage == StageInput {
		v.Estimate = s.estimates.Snapshot()
		v.Ready = !s.inFlight && s.resume.HasData() && s.jd.HasData()
	}

	return v
}

func (s *Session) acceptsEstimates() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stage == StageInput
}

func (s *Session) moveLocked(event Event) error {
	next, err := Transition(s.stage, event)
	if err != nil {
		return err
	}

	if next != s.stage {
		fields := append(logger.SessionFields(s.id, string(next)), zap.String("from", string(s.stage)))
		s.base.Info("stage changed", fields...)
	}
	s.stage = next

	return nil
}

func (s *Session) clearDocumentsLocked() {
	s.resume = document.Source{Role: document.RoleResume, Mode: document.ModeFile}
	s.jd = document.Source{Role: document.RoleJobDescription, Mode: document.ModeFile}
}

// localText is the overlay text when the service does not echo the resume.
func (s *Session) localText(resume document.Source) string {
	text, err := resume.PlainText()
	if err != nil {
		s.logger.Warn("resume text unavailable, evidence will not be highlighted", zap.Error(err))
		return ""
	}
	return text
}
