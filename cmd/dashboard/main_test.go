package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/auth"
	"github.com/AngelCh415/kpi-dashboard/internal/config"
	"github.com/AngelCh415/kpi-dashboard/internal/httpx"
	"github.com/AngelCh415/kpi-dashboard/internal/metrics"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/realtime"
	"github.com/AngelCh415/kpi-dashboard/internal/sheet"
	"github.com/AngelCh415/kpi-dashboard/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	st := store.NewMemoryStore()
	hub := realtime.NewHub(zap.NewNop())
	srv := httptest.NewServer(httpx.NewRouter(httpx.Deps{
		Log:      zap.NewNop(),
		Store:    st,
		Service:  metrics.NewService(st),
		Hub:      hub,
		Issuer:   auth.NewIssuer("test-secret", time.Hour),
		Prefix:   "/api",
		Sector:   "marketing",
		User:     models.User{ID: 1, Email: "admin@example.com", FullName: "Administrador", Role: "admin", IsActive: true},
		Password: "admin",
	}))
	t.Cleanup(func() { hub.Close(); srv.Close() })

	return config.Config{
		APIURL:       srv.URL,
		APIPrefix:    "/api",
		CreatePath:   "/marketing/data",
		Sector:       "marketing",
		HTTPTimeout:  5 * time.Second,
		PeriodDays:   30,
		PerPage:      10,
		Timezone:     "UTC",
		TokenDB:      filepath.Join(t.TempDir(), "token.db"),
		DevUserEmail: "admin@example.com",
		Environment:  "test",
		LogLevel:     "error",
	}
}

func exec(t *testing.T, cfg config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), cfg, args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestSubmitAndExport(t *testing.T) {
	cfg := testConfig(t)

	if _, _, err := exec(t, cfg, "submit", "canal=SEO"); err == nil {
		t.Fatal("submit without a session must fail")
	}
	out, _, err := exec(t, cfg, "login", "-password", "admin")
	if err != nil || !strings.Contains(out, "Administrador") {
		t.Fatalf("login: out=%q err=%v", out, err)
	}

	entry := []string{"submit",
		"data_ref=" + time.Now().UTC().Format(models.DateLayout), "canal=Google Ads", "campanha=Verão 2024",
		"investimento=500", "impressoes=5000", "cliques=250",
		"leads_gerados=25", "conversoes=5", "receita_gerada=1500"}
	out, _, err = exec(t, cfg, entry...)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var created models.Entry
	if err := json.Unmarshal([]byte(out), &created); err != nil || created.ID == 0 {
		t.Fatalf("created=%q err=%v", out, err)
	}

	_, errOut, err := exec(t, cfg, entry...)
	if err == nil || !strings.Contains(errOut, "Registro Duplicado") {
		t.Fatalf("duplicate: stderr=%q err=%v", errOut, err)
	}

	_, errOut, err = exec(t, cfg, "submit", "canal=SEO")
	if err == nil || !strings.Contains(errOut, "campanha:") {
		t.Fatalf("invalid: stderr=%q err=%v", errOut, err)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	out, _, err = exec(t, cfg, "export", "-format", "csv", "-out", path)
	if err != nil || !strings.HasPrefix(out, "1 registros") {
		t.Fatalf("export: out=%q err=%v", out, err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "Google Ads") {
		t.Fatalf("csv=%q err=%v", data, err)
	}

	if _, _, err := exec(t, cfg, "logout"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := exec(t, cfg, "me"); !errors.Is(err, auth.ErrNotLoggedIn) {
		t.Fatalf("me after logout: %v", err)
	}
}

func TestSubmitFeedsClientMetrics(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg, io.Discard, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()

	if err := a.submit(context.Background(), []string{"canal=SEO"}); err == nil {
		t.Fatal("invalid submit accepted")
	}

	rec := httptest.NewRecorder()
	a.metricsRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if want := `kpi_dashboard_submissions_total{outcome="invalid"} 1`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("missing %q in\n%s", want, rec.Body.String())
	}
}

func TestImportDryRun(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "in.csv")
	csv := "Data,Canal,Campanha,Investimento,Impressões,Cliques,Leads,Conversões,Receita\n" +
		"2024-01-15,SEO,Blog,10,100,10,5,1,50\n" +
		"2024-01-15,seo,blog,10,100,10,5,1,50\n" +
		"2024-01-16,SEO,Blog,10,100,200,5,1,50\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := exec(t, cfg, "import", "-dry-run", path)
	if err != nil {
		t.Fatal(err)
	}
	var res sheet.UploadResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.Valid != 1 || res.Duplicate != 1 || res.Invalid != 1 || res.Inserted != 0 {
		t.Fatalf("result=%+v", res)
	}

	if _, _, err := exec(t, cfg, "import", filepath.Join(t.TempDir(), "x.pdf")); err == nil {
		t.Fatal("pdf accepted")
	}
}

func TestUsage(t *testing.T) {
	cfg := testConfig(t)
	if _, _, err := exec(t, cfg); !errors.Is(err, errUsage) {
		t.Fatalf("err=%v", err)
	}
	if _, _, err := exec(t, cfg, "dance"); !errors.Is(err, errUsage) {
		t.Fatalf("err=%v", err)
	}
	if _, err := parseAssignments([]string{"canal"}); err == nil {
		t.Fatal("missing = accepted")
	}
}

func TestDefaultPeriod(t *testing.T) {
	a := &app{
		cfg: config.Config{PeriodDays: 30, PerPage: 10, Timezone: "America/Fortaleza"},
		now: func() time.Time { return time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC) },
	}
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	q := a.queryFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	// 02:00 UTC is still Feb 29 in Fortaleza
	if q.To != "2024-02-29" || q.From != "2024-01-30" || q.Page != 1 || q.PerPage != 10 {
		t.Fatalf("query=%+v", *q)
	}
}
