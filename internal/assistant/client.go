// Package assistant talks to the external text generation service that
// writes reports, analyses and chat answers over the visit data.
package assistant

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"carretometro-backend/config"
)

// ErrDisabled is returned when no endpoint is configured.
var ErrDisabled = errors.New("assistant endpoint not configured")

// Client posts flow inputs to {endpoint}/{flow} and decodes the output.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cache    *cache.Cache
	log      logrus.FieldLogger
}

// New creates a client from the AI configuration.
func New(cfg config.AIConfig, log logrus.FieldLogger) *Client {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cache:    cache.New(ttl, 2*ttl),
		log:      log.WithField("component", "assistant"),
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

type envelope struct {
	Input any `json:"input"`
}

type result struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error,omitempty"`
}

// call runs one flow. When cached is set a successful output is kept and
// served again for an identical input until it expires.
func (c *Client) call(ctx context.Context, flow string, input, out any, cached bool) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	body, err := json.Marshal(envelope{Input: input})
	if err != nil {
		return fmt.Errorf("failed to marshal %s input: %w", flow, err)
	}

	key := cacheKey(flow, body)
	if cached {
		if raw, found := c.cache.Get(key); found {
			return json.Unmarshal(raw.([]byte), out)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+flow, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", flow, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", flow, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", flow, resp.StatusCode)
	}

	var res result
	if err := json.Unmarshal(payload, &res); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", flow, err)
	}
	if res.Error != "" {
		return fmt.Errorf("%s failed: %s", flow, res.Error)
	}
	if len(res.Output) == 0 || string(res.Output) == "null" {
		return fmt.Errorf("%s returned no output", flow)
	}
	if err := json.Unmarshal(res.Output, out); err != nil {
		return fmt.Errorf("failed to decode %s output: %w", flow, err)
	}

	c.log.WithFields(logrus.Fields{"flow": flow, "elapsed": time.Since(started).String()}).Debug("flow completed")
	if cached {
		c.cache.SetDefault(key, []byte(res.Output))
	}
	return nil
}

func cacheKey(flow string, body []byte) string {
	sum := sha256.Sum256(body)
	return flow + ":" + hex.EncodeToString(sum[:])
}
