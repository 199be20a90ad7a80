package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubQuotes struct {
	mu    sync.Mutex
	word  string
	err   error
	calls []string
}

func (s *stubQuotes) Quote(_ context.Context, day string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, day)
	return s.word, s.err
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

func TestResetOncePerDay(t *testing.T) {
	loc, err := LoadLocation("asia/shanghai")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	now := &fakeNow{t: time.Date(2024, 5, 1, 23, 58, 0, 0, loc)}
	quotes := &stubQuotes{word: "слово"}
	clock := NewClock(quotes, zerolog.Nop(), WithLocation(loc), WithNow(now.Now))
	ctx := context.Background()

	clock.Increment()
	clock.Increment()

	now.Set(time.Date(2024, 5, 1, 23, 59, 0, 0, loc))
	if clock.Check(ctx) {
		t.Fatal("в пределах дня сброса быть не должно")
	}
	if got := clock.Snapshot().ReplyCount; got != 2 {
		t.Fatalf("ожидали 2 ответа, получили %d", got)
	}

	now.Set(time.Date(2024, 5, 2, 0, 1, 0, 0, loc))
	if !clock.Check(ctx) {
		t.Fatal("после полуночи ожидали сброс")
	}
	if clock.Check(ctx) {
		t.Fatal("сброс должен произойти ровно один раз")
	}
	clock.Wait()

	snap := clock.Snapshot()
	if snap.ReplyCount != 0 || snap.LastResetDate != "2024-05-02" || snap.DailyWord != "слово" {
		t.Fatalf("неожиданная статистика: %+v", snap)
	}
	if len(quotes.calls) != 1 || quotes.calls[0] != "2024-05-02" {
		t.Fatalf("ожидали один запрос слова дня, получили %v", quotes.calls)
	}
}

func TestQuoteFailureUsesFallback(t *testing.T) {
	now := &fakeNow{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	clock := NewClock(&stubQuotes{err: errors.New("timeout")}, zerolog.Nop(),
		WithLocation(time.UTC), WithNow(now.Now), WithFallback("запасное"))
	now.Set(time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC))
	if !clock.Check(context.Background()) {
		t.Fatal("ожидали сброс")
	}
	clock.Wait()
	if got := clock.Snapshot().DailyWord; got != "запасное" {
		t.Fatalf("ожидали запасное слово, получили %q", got)
	}
}

func TestStartKeepsSameDayReplies(t *testing.T) {
	now := &fakeNow{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	quotes := &stubQuotes{word: "слово"}
	clock := NewClock(quotes, zerolog.Nop(), WithLocation(time.UTC), WithNow(now.Now))
	if got := clock.Snapshot().LastResetDate; got != "2024-03-10" {
		t.Fatalf("день сброса должен быть задан при создании, получили %q", got)
	}
	clock.Increment()
	clock.Increment()

	if clock.Check(context.Background()) {
		t.Fatal("без смены дня сброса быть не должно")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock.Run(ctx)
	clock.Wait()

	snap := clock.Snapshot()
	if snap.ReplyCount != 2 {
		t.Fatalf("ответы за день потеряны: %+v", snap)
	}
	if snap.DailyWord != "слово" || len(quotes.calls) != 1 || quotes.calls[0] != "2024-03-10" {
		t.Fatalf("при запуске ожидали загрузку слова дня: %+v, %v", snap, quotes.calls)
	}
}

func TestNilQuoteSource(t *testing.T) {
	clock := NewClock(nil, zerolog.Nop(), WithLocation(time.UTC))
	clock.Check(context.Background())
	if got := clock.Snapshot().DailyWord; got != DefaultFallback {
		t.Fatalf("получили %q", got)
	}
}

func TestLoadLocation(t *testing.T) {
	if _, err := LoadLocation("europe/moscow"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := LoadLocation("Mars/Olympus"); !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("ожидали ErrInvalidTimezone, получили %v", err)
	}
}
