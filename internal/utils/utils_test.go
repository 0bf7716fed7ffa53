package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBackoffDelays(t *testing.T) {
	exp := NewBackoff(100*time.Millisecond, 3)
	if exp.Delay(0) != 100*time.Millisecond || exp.Delay(2) != 400*time.Millisecond {
		t.Fatalf("exponential delays: %v %v", exp.Delay(0), exp.Delay(2))
	}
	fixed := FixedBackoff(time.Second, 5)
	if fixed.Delay(0) != time.Second || fixed.Delay(4) != time.Second {
		t.Fatal("fixed delay must not grow")
	}
}

func TestBackoffDoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := FixedBackoff(time.Millisecond, 5).Do(context.Background(), func(i int) error {
		calls++
		if i < 2 {
			return errors.New("fail")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestBackoffDoExhaustsAndPermanent(t *testing.T) {
	calls := 0
	err := FixedBackoff(time.Millisecond, 2).Do(context.Background(), func(int) error {
		calls++
		return errors.New("fail")
	})
	if err == nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	stop := errors.New("stop")
	calls = 0
	err = FixedBackoff(time.Millisecond, 5).Do(context.Background(), func(int) error {
		calls++
		return Permanent(stop)
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Sleep ignored cancellation")
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(Logger(zap.NewNop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RID(r.Context())
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("seen=%q header=%q", seen, rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if seen == "" || seen == "abc" {
		t.Fatalf("expected a generated id, got %q", seen)
	}
}
