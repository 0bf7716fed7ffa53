package dashboard

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

type fakeCreator struct {
	calls int
	err   error
	seen  *Submitter
	busy  bool
}

func (f *fakeCreator) CreateEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	f.calls++
	if f.seen != nil {
		f.busy = f.seen.Submitting()
	}
	if f.err != nil {
		return models.Entry{}, f.err
	}
	e.ID = 42
	return e, nil
}

func validForm(t *testing.T) *validate.Form {
	t.Helper()
	f := validate.NewForm(validate.Validator{})
	for k, v := range map[string]string{
		validate.FieldDateRef:     "2024-01-15",
		validate.FieldChannel:     "Google Ads",
		validate.FieldCampaign:    "Verão 2024",
		validate.FieldInvestment:  "1000",
		validate.FieldImpressions: "10000",
		validate.FieldClicks:      "500",
		validate.FieldLeads:       "50",
		validate.FieldConversions: "10",
		validate.FieldRevenue:     "3000",
	} {
		if err := f.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestSubmitOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		outcome Outcome
		title   string
		message string
	}{
		{"created", nil, OutcomeCreated, TitleSuccess, MsgCreated},
		{"conflict with detail", &api.Error{Kind: api.KindConflict, Status: 409, Detail: "Registro duplicado"},
			OutcomeConflict, TitleDuplicate, "Registro duplicado"},
		{"conflict without detail", &api.Error{Kind: api.KindConflict, Status: 409},
			OutcomeConflict, TitleDuplicate, MsgDuplicate},
		{"network", &api.Error{Kind: api.KindNetwork, Detail: api.DetailNetwork},
			OutcomeNetwork, TitleSaveFailed, MsgNetwork},
		{"backend with detail", &api.Error{Kind: api.KindBackend, Status: 500, Detail: "falha interna"},
			OutcomeBackend, TitleSaveFailed, "falha interna"},
		{"backend without detail", &api.Error{Kind: api.KindBackend, Status: 502},
			OutcomeBackend, TitleSaveFailed, MsgGeneric},
		{"plain error", errors.New("boom"), OutcomeBackend, TitleSaveFailed, MsgGeneric},
		{"auth", &api.Error{Kind: api.KindAuth, Status: 401}, OutcomeAuth, TitleSaveFailed, MsgSessionExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			fc := &fakeCreator{err: tc.err}
			s := NewSubmitter(fc, rec, zap.NewNop(), nil)
			fc.seen = s

			f := validForm(t)
			res := s.Submit(context.Background(), f)
			if res.Outcome != tc.outcome {
				t.Fatalf("outcome=%s", res.Outcome)
			}
			n := rec.last()
			if n.Title != tc.title || n.Message != tc.message {
				t.Fatalf("notification=%+v", n)
			}
			if !fc.busy {
				t.Fatal("submitting flag not set during the request")
			}
			if s.Submitting() || f.Submitting {
				t.Fatal("submitting flag not reset")
			}
			if tc.err == nil && f.Input.Campaign != "" {
				t.Fatal("form must be reset after success")
			}
			if tc.err != nil && f.Input.Campaign == "" {
				t.Fatal("form must keep its input after a failure")
			}
		})
	}
}

func TestSubmitInvalidNeverCallsBackend(t *testing.T) {
	rec := &recorder{}
	fc := &fakeCreator{}
	s := NewSubmitter(fc, rec, zap.NewNop(), nil)

	f := validForm(t)
	f.Set(validate.FieldConversions, "60")
	res := s.Submit(context.Background(), f)

	if res.Outcome != OutcomeInvalid || fc.calls != 0 {
		t.Fatalf("outcome=%s calls=%d", res.Outcome, fc.calls)
	}
	if _, ok := res.Errors[validate.FieldConversions]; !ok || len(res.Errors) != 1 {
		t.Fatalf("errors=%v", res.Errors)
	}
	if n := rec.last(); n.Title != TitleValidation || n.Message != MsgFixForm {
		t.Fatalf("notification=%+v", n)
	}
}
