package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/infra/cache"
)

func TestHitokotoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hitokoto":"人生若只如初见","from":"纳兰性德"}`))
	}))
	defer srv.Close()

	got, err := NewHitokoto(srv.URL).Quote(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "人生若只如初见 —— 纳兰性德" {
		t.Fatalf("получили %q", got)
	}
}

func TestHitokotoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewHitokoto(srv.URL).Quote(context.Background(), ""); err == nil {
		t.Fatal("ожидали ошибку")
	}
}

func TestWithTimeoutKeepsSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	h := NewHitokoto("", WithHTTPClient(shared), WithTimeout(3*time.Second))
	if shared.Timeout != time.Minute {
		t.Fatalf("общий клиент изменён: %v", shared.Timeout)
	}
	if h.httpClient == shared || h.httpClient.Timeout != 3*time.Second {
		t.Fatalf("таймаут не применён к копии: %v", h.httpClient.Timeout)
	}
}

func TestCachedQuote(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"hitokoto":"q","from":"f"}`))
	}))
	defer srv.Close()

	cached := NewCached(NewHitokoto(srv.URL), cache.NewMemory(), zerolog.Nop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if got, err := cached.Quote(ctx, "2024-05-01"); err != nil || got != "q —— f" {
			t.Fatalf("получили %q (%v)", got, err)
		}
	}
	if _, err := cached.Quote(ctx, "2024-05-02"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if calls != 2 {
		t.Fatalf("ожидали 2 запроса, получили %d", calls)
	}
}
