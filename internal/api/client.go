package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client whose timeout bounds every request.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// Credentials supplies the bearer token for outgoing requests. ok is false
// when there is no usable token; the request is then sent unauthenticated.
type Credentials interface {
	Token(ctx context.Context) (token string, ok bool)
}

type Client struct {
	c          HTTPClient
	base       string
	createPath string
	creds      Credentials
	log        *zap.Logger
}

type Option func(*Client)

// WithCredentials injects the token provider read by every request.
func WithCredentials(cr Credentials) Option { return func(c *Client) { c.creds = cr } }

// WithCreatePath overrides the create endpoint (default /marketing/data).
func WithCreatePath(p string) Option { return func(c *Client) { c.createPath = p } }

func New(c HTTPClient, baseURL string, log *zap.Logger, opts ...Option) *Client {
	cl := &Client{
		c:          c,
		base:       strings.TrimRight(baseURL, "/"),
		createPath: "/marketing/data",
		log:        log,
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

func (c *Client) Login(ctx context.Context, email, password string) (models.LoginResponse, error) {
	var out models.LoginResponse
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

// CreateEntry posts a validated entry. A duplicate key comes back as KindConflict.
func (c *Client) CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	var out models.Entry
	err := c.do(ctx, http.MethodPost, c.createPath, nil, e, &out)
	return out, err
}

// listEnvelope accepts both historical list shapes: {items: [...]} and {data: [...]}.
type listEnvelope struct {
	Items      []models.Entry `json:"items"`
	Data       []models.Entry `json:"data"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

func (l listEnvelope) page() models.Page {
	items := l.Items
	if items == nil {
		items = l.Data
	}
	if items == nil {
		items = []models.Entry{}
	}
	return models.Page{Items: items, Total: l.Total, Page: l.Page, PerPage: l.PerPage, TotalPages: l.TotalPages}
}

func (c *Client) ListEntries(ctx context.Context, q models.Query) (models.Page, error) {
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/marketing/data", q.Values(), nil, &env); err != nil {
		return models.Page{}, err
	}
	return env.page(), nil
}

// legacyMetrics is the older stats shape, keyed "metricas".
type legacyMetrics struct {
	ROI            float64 `json:"roi_percentual"`
	CPL            float64 `json:"cpl"`
	ConversionRate float64 `json:"taxa_conversao_percentual"`
	CTR            float64 `json:"ctr_percentual"`
}

type statsEnvelope struct {
	models.Totals
	KPIs     *models.KPIs   `json:"kpis"`
	Metricas *legacyMetrics `json:"metricas"`
}

func (c *Client) Stats(ctx context.Context, q models.Query) (models.Stats, error) {
	var env statsEnvelope
	if err := c.do(ctx, http.MethodGet, "/marketing/stats", q.StatsValues(), nil, &env); err != nil {
		return models.Stats{}, err
	}
	st := models.Stats{Totals: env.Totals, KPIs: env.KPIs}
	if st.KPIs == nil && env.Metricas != nil {
		st.KPIs = &models.KPIs{
			ROI:            env.Metricas.ROI,
			CPL:            env.Metricas.CPL,
			ConversionRate: env.Metricas.ConversionRate,
			CTR:            env.Metricas.CTR,
		}
	}
	return st, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	rid := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", rid)
	if c.creds != nil {
		if tok, ok := c.creds.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.c.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path),
			zap.String("rid", rid), zap.Error(err))
		return &Error{Kind: KindNetwork, Detail: DetailNetwork, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("request", zap.String("method", method), zap.String("path", path),
		zap.String("rid", rid), zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindBackend, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func statusError(status int, body []byte) *Error {
	e := &Error{Kind: KindBackend, Status: status, Detail: detail(body)}
	switch status {
	case http.StatusConflict:
		e.Kind = KindConflict
	case http.StatusUnauthorized:
		e.Kind = KindAuth
	}
	return e
}

// detail extracts {"detail": "..."}; structured details (lists) yield "".
func detail(body []byte) string {
	var d struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &d) != nil || len(d.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(d.Detail, &s) != nil {
		return ""
	}
	return s
}
