package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

func TestInsertRejectsDuplicateKey(t *testing.T) {
	st := NewMemoryStore()
	e := models.Entry{DateRef: "2024-01-15", Channel: "Google Ads", Campaign: "Verão"}
	got, err := st.Insert(e, "admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 1 || got.CreatedAt == "" || got.CreatedBy != "admin@example.com" {
		t.Fatalf("entry=%+v", got)
	}

	// misma clave con otra capitalización
	e.Channel, e.Campaign = "google ads", " VERÃO "
	if _, err := st.Insert(e, ""); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	e.DateRef = "2024-01-16"
	if _, err := st.Insert(e, ""); err != nil {
		t.Fatalf("other date must be accepted: %v", err)
	}
	if st.Len() != 2 {
		t.Fatalf("len=%d", st.Len())
	}
}

func TestConcurrentInsertSameKey(t *testing.T) {
	st := NewMemoryStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Insert(models.Entry{DateRef: "2024-01-15", Channel: "SEO", Campaign: "abc"}, ""); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 1 {
		t.Fatalf("inserted %d times", ok)
	}
}

func TestQueryBounds(t *testing.T) {
	st := NewMemoryStore()
	for _, d := range []string{"2024-01-01", "2024-01-15", "2024-02-01"} {
		st.Insert(models.Entry{DateRef: d, Channel: "SEO", Campaign: "abc"}, "")
	}
	if n := len(st.Query("2024-01-01", "2024-01-31", nil)); n != 2 {
		t.Fatalf("closed range=%d", n)
	}
	if n := len(st.Query("", "", nil)); n != 3 {
		t.Fatalf("open range=%d", n)
	}
	if n := len(st.Query("2024-01-10", "", func(e models.Entry) bool { return e.DateRef != "2024-02-01" })); n != 1 {
		t.Fatalf("filtered=%d", n)
	}
}
