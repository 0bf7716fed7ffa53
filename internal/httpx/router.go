package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/auth"
	"github.com/AngelCh415/kpi-dashboard/internal/metrics"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/realtime"
	"github.com/AngelCh415/kpi-dashboard/internal/store"
	"github.com/AngelCh415/kpi-dashboard/internal/telemetry"
	"github.com/AngelCh415/kpi-dashboard/internal/utils"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

const msgDuplicate = "Já existe um registro para esta data, canal e campanha."

// Deps is everything the development backend serves from.
type Deps struct {
	Log       *zap.Logger
	Store     *store.MemoryStore
	Service   *metrics.Service
	Hub       *realtime.Hub
	Issuer    *auth.Issuer
	Validator validate.Validator
	Metrics   *telemetry.Metrics

	Prefix string
	Sector string
	// ListEnvelope is "items" or "data".
	ListEnvelope string
	User         models.User
	Password     string
}

type api struct{ Deps }

func NewRouter(d Deps) http.Handler {
	a := api{d}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log, d.Metrics))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}
	mux.Handle("/ws", d.Hub)

	if d.Prefix == "" {
		a.routes(mux)
	} else {
		mux.Route(d.Prefix, a.routes)
	}
	return mux
}

func (a api) routes(r chi.Router) {
	r.Post("/auth/login", a.login)
	r.Group(func(r chi.Router) {
		r.Use(a.requireToken)
		r.Get("/auth/me", a.me)
		r.Post("/marketing/data", a.create)
		r.Post("/marketing/", a.create)
		r.Get("/marketing/data", a.list)
		r.Get("/marketing/stats", a.stats)
	})
}

type claimsKey struct{}

func (a api) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || tok == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := a.Issuer.Verify(tok)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

func (a api) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if !strings.EqualFold(body.Email, a.User.Email) || body.Password != a.Password {
		writeDetail(w, http.StatusUnauthorized, "Email ou senha incorretos")
		return
	}
	tok, err := a.Issuer.Issue(a.User)
	if err != nil {
		a.Log.Error("issue token", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "token error")
		return
	}
	u := a.User
	writeJSON(w, http.StatusOK, models.LoginResponse{AccessToken: tok, TokenType: "bearer", User: &u})
}

func (a api) me(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	if c == nil || !strings.EqualFold(c.Subject, a.User.Email) {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, a.User)
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func (a api) create(w http.ResponseWriter, r *http.Request) {
	var e models.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []fieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}},
		})
		return
	}
	if errs := a.Validator.Entry(e); !errs.OK() {
		var detail []fieldError
		for _, f := range validate.Fields {
			if msg, ok := errs[f]; ok {
				detail = append(detail, fieldError{Loc: []string{"body", f}, Msg: msg, Type: "value_error"})
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": detail})
		return
	}
	e.Channel, e.Campaign = strings.TrimSpace(e.Channel), strings.TrimSpace(e.Campaign)

	by := ""
	if c := claimsFrom(r.Context()); c != nil {
		by = c.Subject
	}
	saved, err := a.Store.Insert(e, by)
	if errors.Is(err, store.ErrDuplicate) {
		writeDetail(w, http.StatusConflict, msgDuplicate)
		return
	}
	if err != nil {
		a.Log.Error("insert", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Erro ao salvar")
		return
	}
	a.Metrics.EntriesStored(a.Store.Len())
	writeJSON(w, http.StatusCreated, saved)
	a.broadcast(saved)
}

// broadcast pushes the overall KPIs after a write.
func (a api) broadcast(e models.Entry) {
	st, err := a.Service.Stats(nil)
	if err != nil || st.KPIs == nil {
		return
	}
	id := e.ID
	n := a.Hub.Broadcast(a.Sector, realtime.EventKPIUpdate, models.LiveUpdate{
		Sector:    a.Sector,
		Action:    "create",
		DataID:    &id,
		DateRef:   e.DateRef,
		KPIs:      models.LiveFrom(*st.KPIs),
		Timestamp: time.Now().UTC(),
	})
	a.Log.Debug("kpi:update", zap.Int64("id", id), zap.Int("subscribers", n))
}

func (a api) list(w http.ResponseWriter, r *http.Request) {
	p, err := a.Service.List(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.ListEnvelope == "data" {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": p.Items, "total": p.Total, "page": p.Page,
			"per_page": p.PerPage, "total_pages": p.TotalPages,
		})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a api) stats(w http.ResponseWriter, r *http.Request) {
	st, err := a.Service.Stats(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
