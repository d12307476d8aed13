package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	langpkg "dualsub/internal/language"
	"dualsub/internal/services"
)

const (
	// EngineName is the engine key used in configuration and artifact names.
	EngineName = "azure"

	defaultEndpoint    = "https://api.cognitive.microsofttranslator.com"
	defaultHTTPTimeout = 30 * time.Second
	apiVersion         = "3.0"
	// Service limits per request.
	maxBatchTexts = 100
	maxBatchChars = 10000
)

// Config captures the runtime settings required to talk to Azure Translator.
type Config struct {
	APIKey            string
	Endpoint          string
	Region            string
	RequestsPerMinute int
	TimeoutSeconds    int
}

// Client wraps the Azure Translator v3 text API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an Azure client. RequestsPerMinute <= 0 disables
// throttling.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name returns the engine name.
func (c *Client) Name() string { return EngineName }

type requestItem struct {
	Text string `json:"text"`
}

type responseItem struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type errorPayload struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TranslateTexts translates texts in as few requests as the service limits
// allow, preserving order.
func (c *Client) TranslateTexts(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "azure", "translate", "Azure API key missing (set translation.azure.api_key or AZURE_KEY)", nil)
	}
	out := make([]string, 0, len(texts))
	for _, batch := range batches(texts) {
		translated, err := c.translateBatch(ctx, batch, source, target)
		if err != nil {
			return nil, err
		}
		out = append(out, translated...)
	}
	return out, nil
}

func (c *Client) translateBatch(ctx context.Context, batch []string, source, target string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, services.Wrap(services.ErrTimeout, "azure", "throttle", "Rate limiter wait failed", err)
	}

	items := make([]requestItem, len(batch))
	for i, text := range batch {
		items[i] = requestItem{Text: text}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("azure: encode request: %w", err)
	}

	query := url.Values{}
	query.Set("api-version", apiVersion)
	query.Set("from", apiLanguage(source))
	query.Set("to", apiLanguage(target))
	endpoint := c.cfg.Endpoint + "/translate?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("azure: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	if c.cfg.Region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.cfg.Region)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "azure", "translate", "Request to Azure Translator failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "azure", "translate", "Reading Azure response failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(payload))
		var apiErr errorPayload
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		marker := services.ErrExternalTool
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			marker = services.ErrConfiguration
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "azure", "translate", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, message), nil)
	}

	var decoded []responseItem
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "azure", "translate", "Azure response is not valid JSON", err)
	}
	if len(decoded) != len(batch) {
		return nil, services.Wrap(services.ErrExternalTool, "azure", "translate",
			fmt.Sprintf("Azure returned %d results for %d texts", len(decoded), len(batch)), nil)
	}
	out := make([]string, len(decoded))
	for i, item := range decoded {
		if len(item.Translations) == 0 {
			return nil, services.Wrap(services.ErrExternalTool, "azure", "translate", fmt.Sprintf("Azure returned no translation for text %d", i), nil)
		}
		out[i] = item.Translations[0].Text
	}
	return out, nil
}

// batches splits texts by the per-request element and character limits. A
// single text longer than the character limit gets a batch of its own.
func batches(texts []string) [][]string {
	var out [][]string
	var current []string
	chars := 0
	for _, text := range texts {
		if len(current) > 0 && (len(current) == maxBatchTexts || chars+len(text) > maxBatchChars) {
			out = append(out, current)
			current, chars = nil, 0
		}
		current = append(current, text)
		chars += len(text)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// apiLanguage maps canonical codes to the forms Azure expects ("pt-br" ->
// "pt-BR"); unknown codes pass through.
func apiLanguage(code string) string {
	canonical, err := langpkg.Canonical(code)
	if err != nil {
		return code
	}
	parts := strings.Split(canonical, "-")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) == 4 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		} else {
			parts[i] = strings.ToUpper(parts[i])
		}
	}
	return strings.Join(parts, "-")
}
