package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/telemetry"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

type Creator interface {
	CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error)
}

type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeConflict Outcome = "conflict"
	OutcomeNetwork  Outcome = "network"
	OutcomeBackend  Outcome = "backend"
	OutcomeAuth     Outcome = "auth"
)

type Result struct {
	Outcome Outcome
	Entry   models.Entry
	Errors  validate.Errors
	Err     error
}

// Submitter sends a form to the backend and turns every outcome into a
// notification.
type Submitter struct {
	api     Creator
	notify  Notifier
	log     *zap.Logger
	metrics *telemetry.Metrics

	mu         sync.Mutex
	submitting bool
}

func NewSubmitter(c Creator, n Notifier, log *zap.Logger, m *telemetry.Metrics) *Submitter {
	return &Submitter{api: c, notify: n, log: log, metrics: m}
}

func (s *Submitter) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *Submitter) setSubmitting(b bool) {
	s.mu.Lock()
	s.submitting = b
	s.mu.Unlock()
}

// Submit validates f and, if accepted, creates the entry. The form keeps its
// input on failure; on success it is reset.
func (s *Submitter) Submit(ctx context.Context, f *validate.Form) Result {
	e, ok := f.Validate()
	if !ok {
		s.done(OutcomeInvalid)
		s.notify.Notify(Notification{Level: LevelError, Title: TitleValidation, Message: MsgFixForm})
		return Result{Outcome: OutcomeInvalid, Errors: f.Errors}
	}

	s.setSubmitting(true)
	f.Submitting = true
	defer func() {
		s.setSubmitting(false)
		f.Submitting = false
	}()

	created, err := s.api.CreateEntry(ctx, e)
	if err == nil {
		s.done(OutcomeCreated)
		s.log.Info("entry created", zap.Int64("id", created.ID), zap.String("data_ref", created.DateRef))
		s.notify.Notify(Notification{Level: LevelSuccess, Title: TitleSuccess, Message: MsgCreated})
		f.Reset()
		return Result{Outcome: OutcomeCreated, Entry: created}
	}

	res := Result{Outcome: classify(err), Entry: e, Err: err}
	s.done(res.Outcome)
	s.log.Warn("submit failed", zap.String("outcome", string(res.Outcome)), zap.Error(err))
	s.notify.Notify(failure(res.Outcome, api.DetailOf(err)))
	return res
}

func (s *Submitter) done(o Outcome) { s.metrics.Submission(string(o)) }

func classify(err error) Outcome {
	switch api.KindOf(err) {
	case api.KindConflict:
		return OutcomeConflict
	case api.KindNetwork:
		return OutcomeNetwork
	case api.KindAuth:
		return OutcomeAuth
	}
	return OutcomeBackend
}

func failure(o Outcome, detail string) Notification {
	n := Notification{Level: LevelError, Title: TitleSaveFailed}
	switch o {
	case OutcomeConflict:
		n.Title = TitleDuplicate
		n.Message = or(detail, MsgDuplicate)
	case OutcomeNetwork:
		n.Message = MsgNetwork
	case OutcomeAuth:
		n.Message = MsgSessionExpired
	default:
		n.Message = or(detail, MsgGeneric)
	}
	return n
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
