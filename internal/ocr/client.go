package ocr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Extraction is the structured output of the hosted extraction function.
// The user reviews it before anything is written.
type Extraction struct {
	Supplier ExtractedSupplier  `json:"supplier"`
	Invoice  ExtractedInvoice   `json:"invoice"`
	Products []ExtractedProduct `json:"products"`
}

// ExtractedSupplier is the supplier block of an extraction.
type ExtractedSupplier struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// ExtractedInvoice is the invoice header block of an extraction.
type ExtractedInvoice struct {
	Number string          `json:"number"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// ExtractedProduct is one recognized product line.
type ExtractedProduct struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Unit     string          `json:"unit"`
	Rate     decimal.Decimal `json:"rate"`
	HSCode   string          `json:"hs_code"`
}

// Client wraps interactions with the extraction function. Results are
// cached briefly in redis keyed by payload hash so a retried upload of the
// same document does not re-bill the function.
type Client struct {
	logger     *slog.Logger
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
}

// NewClient constructs the extraction client. endpoint is the full URL of
// the extraction function. cache may be nil.
func NewClient(logger *slog.Logger, endpoint, apiKey string, cache *redis.Client, cacheTTL time.Duration) *Client {
	return &Client{
		logger:   logger,
		endpoint: endpoint,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

type extractRequest struct {
	Document string `json:"document"`
	MimeType string `json:"mime_type"`
}

// Extract submits an image or PDF payload and returns the structured
// result. Upstream errors are surfaced verbatim.
func (c *Client) Extract(ctx context.Context, payload []byte, mimeType string) (Extraction, error) {
	key := c.cacheKey(payload)
	if cached, ok := c.fromCache(ctx, key); ok {
		return cached, nil
	}

	body, err := json.Marshal(extractRequest{
		Document: base64.StdEncoding.EncodeToString(payload),
		MimeType: mimeType,
	})
	if err != nil {
		return Extraction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Extraction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("call extraction function: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Extraction{}, err
	}
	if resp.StatusCode >= 400 {
		return Extraction{}, fmt.Errorf("extraction function returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var result Extraction
	if err := json.Unmarshal(raw, &result); err != nil {
		return Extraction{}, fmt.Errorf("decode extraction result: %w", err)
	}
	c.toCache(ctx, key, raw)
	return result, nil
}

func (c *Client) cacheKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "ocr:extract:" + hex.EncodeToString(sum[:])
}

func (c *Client) fromCache(ctx context.Context, key string) (Extraction, bool) {
	if c.cache == nil {
		return Extraction{}, false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return Extraction{}, false
	}
	var result Extraction
	if err := json.Unmarshal(raw, &result); err != nil {
		return Extraction{}, false
	}
	return result, true
}

func (c *Client) toCache(ctx context.Context, key string, raw []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("cache extraction result failed", slog.Any("error", err))
	}
}
