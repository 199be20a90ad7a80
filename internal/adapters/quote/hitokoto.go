package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

// DefaultURL: публичный API hitokoto.
const DefaultURL = "https://v1.hitokoto.cn"

// Hitokoto загружает случайную цитату.
type Hitokoto struct {
	url        string
	httpClient *http.Client
}

type Option func(*Hitokoto)

func WithHTTPClient(client *http.Client) Option {
	return func(h *Hitokoto) {
		if client != nil {
			h.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(h *Hitokoto) {
		client := http.Client{}
		if h.httpClient != nil {
			client = *h.httpClient
		}
		client.Timeout = timeout
		h.httpClient = &client
	}
}

type hitokotoResponse struct {
	Hitokoto string `json:"hitokoto"`
	From     string `json:"from"`
}

// NewHitokoto создаёт клиент.
func NewHitokoto(url string, opts ...Option) *Hitokoto {
	if url == "" {
		url = DefaultURL
	}
	h := &Hitokoto{url: url, httpClient: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ domain.QuoteSource = (*Hitokoto)(nil)

// Quote возвращает цитату в виде «текст —— источник».
func (h *Hitokoto) Quote(ctx context.Context, _ string) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("hitokoto", "quote", "hitokoto", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hitokoto request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("hitokoto error: status=%d message=%s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var payload hitokotoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(payload.Hitokoto) == "" {
		return "", fmt.Errorf("hitokoto: пустая цитата")
	}
	if payload.From == "" {
		return payload.Hitokoto, nil
	}
	return payload.Hitokoto + " —— " + payload.From, nil
}
