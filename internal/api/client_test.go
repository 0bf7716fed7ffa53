package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

type staticCreds struct {
	tok string
	ok  bool
}

func (s staticCreds) Token(context.Context) (string, bool) { return s.tok, s.ok }

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(NewHTTPClient(2*time.Second), srv.URL+"/api", zap.NewNop(), opts...)
}

func TestCreateEntryConflictKeepsDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/marketing/data" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"Registro duplicado para 2024-01-15"}`))
	})

	_, err := c.CreateEntry(context.Background(), models.Entry{DateRef: "2024-01-15"})
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if DetailOf(err) != "Registro duplicado para 2024-01-15" {
		t.Fatalf("detail=%q", DetailOf(err))
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   Kind
		detail string
	}{
		{500, `{"detail":"boom"}`, KindBackend, "boom"},
		{404, `not json`, KindBackend, ""},
		{401, `{"detail":"Not authenticated"}`, KindAuth, "Not authenticated"},
		{422, `{"detail":[{"loc":["body","canal"],"msg":"field required"}]}`, KindBackend, ""},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		})
		_, err := c.Me(context.Background())
		if KindOf(err) != tc.kind || DetailOf(err) != tc.detail {
			t.Errorf("status %d: kind=%v detail=%q", tc.status, KindOf(err), DetailOf(err))
		}
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(NewHTTPClient(50*time.Millisecond), srv.URL, zap.NewNop())
	_, err := c.Stats(context.Background(), models.Query{})
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if DetailOf(err) != DetailNetwork {
		t.Fatalf("detail=%q", DetailOf(err))
	}
}

func TestListAcceptsBothEnvelopes(t *testing.T) {
	for _, key := range []string{"items", "data"} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("data_inicio") != "2024-01-01" || q.Get("page") != "2" || q.Get("per_page") != "10" {
				t.Errorf("query=%s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(map[string]any{
				key:           []models.Entry{{ID: 7, Channel: "google"}},
				"total":       11,
				"page":        2,
				"per_page":    10,
				"total_pages": 2,
			})
		})
		p, err := c.ListEntries(context.Background(), models.Query{From: "2024-01-01", Page: 2, PerPage: 10})
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if len(p.Items) != 1 || p.Items[0].ID != 7 || p.TotalPages != 2 {
			t.Fatalf("%s: page=%+v", key, p)
		}
	}
}

func TestStatsLegacyMetricas(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "" {
			t.Errorf("stats must not carry pagination: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"total_investimento":1000,"total_leads":50,
			"metricas":{"roi_percentual":200,"cpl":20,"taxa_conversao_percentual":10,"ctr_percentual":5}}`))
	})
	st, err := c.Stats(context.Background(), models.Query{Page: 3, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if st.Investment != 1000 || st.Leads != 50 {
		t.Fatalf("totals=%+v", st.Totals)
	}
	if st.KPIs == nil || st.KPIs.ROI != 200 || st.KPIs.CTR != 5 {
		t.Fatalf("kpis=%+v", st.KPIs)
	}
}

func TestBearerOnlyWhenCredentialsUsable(t *testing.T) {
	var got []string
	h := func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id")
		}
		w.Write([]byte(`{"id":1,"email":"a@b.c"}`))
	}
	c1 := newTestClient(t, h, WithCredentials(staticCreds{"abc", true}))
	c2 := newTestClient(t, h, WithCredentials(staticCreds{"stale", false}))
	c1.Me(context.Background())
	c2.Me(context.Background())
	if got[0] != "Bearer abc" || got[1] != "" {
		t.Fatalf("headers=%q", got)
	}
}

func TestCreatePathOverride(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/marketing/" {
			t.Errorf("path=%s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3}`))
	}, WithCreatePath("/marketing/"))
	e, err := c.CreateEntry(context.Background(), models.Entry{})
	if err != nil || e.ID != 3 {
		t.Fatalf("e=%+v err=%v", e, err)
	}
}
