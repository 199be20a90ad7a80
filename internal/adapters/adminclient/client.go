package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"tg-ext-bot/internal/adapters/admin"
	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/loghub"
)

var (
	// ErrNotFound возвращается, если группа или расширение неизвестны боту.
	ErrNotFound = errors.New("admin api: not found")
	// ErrUnauthorized возвращается при неверном токене.
	ErrUnauthorized = errors.New("admin api: unauthorized")
)

type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		client := http.Client{}
		if c.httpClient != nil {
			client = *c.httpClient
		}
		client.Timeout = timeout
		c.httpClient = &client
	}
}

// WithToken задаёт токен консоли (ADMIN_TOKEN).
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

type apiError struct {
	Error string `json:"error"`
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 70 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Status(ctx context.Context) (admin.Status, error) {
	var st admin.Status
	if err := c.get(ctx, "/api/status", &st); err != nil {
		return admin.Status{}, err
	}
	return st, nil
}

func (c *Client) Groups(ctx context.Context) ([]domain.GroupRecord, error) {
	var groups []domain.GroupRecord
	if err := c.get(ctx, "/api/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) SyncGroups(ctx context.Context) (admin.SyncResult, error) {
	var res admin.SyncResult
	if err := c.post(ctx, "/api/groups/sync", nil, &res); err != nil {
		return admin.SyncResult{}, err
	}
	return res, nil
}

func (c *Client) EnableGroup(ctx context.Context, id string) error {
	return c.post(ctx, "/api/groups/"+url.PathEscape(id)+"/enable", nil, nil)
}

func (c *Client) DisableGroup(ctx context.Context, id string) error {
	return c.post(ctx, "/api/groups/"+url.PathEscape(id)+"/disable", nil, nil)
}

func (c *Client) RemoveGroup(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/groups/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) Extensions(ctx context.Context) ([]domain.ExtensionInfo, error) {
	var exts []domain.ExtensionInfo
	if err := c.get(ctx, "/api/extensions", &exts); err != nil {
		return nil, err
	}
	return exts, nil
}

func (c *Client) EnableExtension(ctx context.Context, name string) error {
	return c.post(ctx, "/api/extensions/"+url.PathEscape(name)+"/enable", nil, nil)
}

func (c *Client) DisableExtension(ctx context.Context, name string) error {
	return c.post(ctx, "/api/extensions/"+url.PathEscape(name)+"/disable", nil, nil)
}

// Send отправляет сообщение через бота. Неудачная доставка возвращается в SendResult без ошибки.
func (c *Client) Send(ctx context.Context, req admin.SendRequest) (domain.SendResult, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/send", req)
	if err != nil {
		return domain.SendResult{}, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("admin api request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return domain.SendResult{}, readAPIError(resp)
	}
	var result domain.SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.SendResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func (c *Client) Logs(ctx context.Context, limit int) ([]loghub.Entry, error) {
	endpoint := "/api/logs"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var entries []loghub.Entry
	if err := c.get(ctx, endpoint, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) ClearLogs(ctx context.Context) error {
	return c.post(ctx, "/api/logs/clear", nil, nil)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	resolved := *c.baseURL
	rawPath, rawQuery, _ := strings.Cut(endpoint, "?")
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + rawPath)
	resolved.RawPath = ""
	resolved.RawQuery = rawQuery
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("admin api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	var apiErr apiError
	data, readErr := io.ReadAll(resp.Body)
	if readErr == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &apiErr)
	}
	if apiErr.Error == "" {
		apiErr.Error = strings.TrimSpace(string(data))
	}
	return mapAPIError(resp.StatusCode, apiErr)
}

func mapAPIError(status int, err apiError) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error)
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("admin api error: status=%d message=%s", status, err.Error)
	}
}
