package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/obgram/internal/metrics"
	"github.com/flemzord/obgram/pkg/onebot"
)

const (
	maxRetries       = 3
	initialBackoff   = time.Second
	maxResponseBytes = 10 << 20 // prevent unbounded reads from API responses
)

var tracer = otel.Tracer("github.com/flemzord/obgram/internal/telegram")

// Client is a thin HTTP wrapper around the Telegram Bot API. Its CallAPI
// method is the normalized send-call dispatcher: it maps any platform or
// transport failure into a CallResult instead of an error, so one inbound
// send request always produces exactly one normalized result.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Bot API client. baseURL defaults to the public API
// host when empty.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// FileURL renders the download URL for a platform file path. Empty paths
// render as "" so absent media paths degrade to empty url fields. The URL
// embeds the bot token; it must never be logged.
func (c *Client) FileURL(filePath string) string {
	if filePath == "" {
		return ""
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
}

// CallAPI invokes one Bot API method and normalizes the response. The
// result is total: network failures yield status failed with a transport
// retcode, platform rejections a platform retcode; an echo parameter, when
// present, is reflected back for correlation.
func (c *Client) CallAPI(ctx context.Context, endpoint string, params map[string]any) onebot.CallResult {
	ctx, span := tracer.Start(ctx, "telegram.call_api",
		trace.WithAttributes(attribute.String("telegram.endpoint", endpoint)))
	defer span.End()

	echo, _ := params["echo"].(string)

	raw, err := c.post(ctx, endpoint, params)
	if err != nil {
		metrics.APICallsTotal.WithLabelValues(endpoint, string(onebot.CallFailed)).Inc()
		return onebot.CallResult{
			Status:  onebot.CallFailed,
			RetCode: onebot.RetNetworkError,
			Message: fmt.Sprintf("%s request failed: %v", endpoint, err),
			Echo:    echo,
		}
	}

	result := onebot.CallResult{Raw: raw, Echo: echo}
	if ok, _ := raw["ok"].(bool); ok {
		metrics.APICallsTotal.WithLabelValues(endpoint, string(onebot.CallOK)).Inc()
		result.Status = onebot.CallOK
		result.RetCode = onebot.RetOK
		result.Data = raw["result"]
		if data, isMap := raw["result"].(map[string]any); isMap {
			result.MessageID = idString(data, "message_id")
		}
		return result
	}

	metrics.APICallsTotal.WithLabelValues(endpoint, string(onebot.CallFailed)).Inc()
	result.Status = onebot.CallFailed
	result.RetCode = onebot.RetPlatformError
	result.Message = defaultStr(raw, "description", "unknown Telegram API error")
	return result
}

// post sends one JSON POST to a Bot API method and decodes the response
// body into a generic map. 429 responses are retried with exponential
// backoff, honoring the platform's retry_after hint. Errors never include
// the request URL: it embeds the bot token.
func (c *Client) post(ctx context.Context, endpoint string, params map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s request: %w", endpoint, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, endpoint)

	backoff := initialBackoff
	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("telegram: create %s request: %w", endpoint, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// Unwrap the url.Error: its message contains the token-bearing
			// request URL.
			if inner := errors.Unwrap(err); inner != nil {
				err = inner
			}
			return nil, fmt.Errorf("telegram: %s request failed: %w", endpoint, err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("telegram: read %s response: %w", endpoint, err)
		}

		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("telegram: decode %s response: %w", endpoint, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries-1 {
			if retryAfter := intField(subMap(raw, "parameters"), "retry_after"); retryAfter > 0 {
				backoff = time.Duration(retryAfter) * time.Second
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			continue
		}

		return raw, nil
	}

	return nil, fmt.Errorf("telegram: %s: max retries exceeded", endpoint)
}

// call invokes an endpoint and converts failed results into errors, for
// internal callers that need the success payload rather than a normalized
// result envelope.
func (c *Client) call(ctx context.Context, endpoint string, params map[string]any) (any, error) {
	result := c.CallAPI(ctx, endpoint, params)
	if !result.OK() {
		return nil, fmt.Errorf("telegram: %s: %s", endpoint, result.Message)
	}
	return result.Data, nil
}

// GetMe returns the authenticated bot's user record.
func (c *Client) GetMe(ctx context.Context) (map[string]any, error) {
	data, err := c.call(ctx, "getMe", map[string]any{})
	if err != nil {
		return nil, err
	}
	user, ok := data.(map[string]any)
	if !ok {
		return nil, errors.New("telegram: getMe: unexpected result shape")
	}
	return user, nil
}

// GetUpdates fetches incoming updates via long polling. Updates are
// returned as raw maps: the converter owns all interpretation.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int, allowedUpdates []string) ([]map[string]any, error) {
	params := map[string]any{"offset": offset, "timeout": timeout}
	if len(allowedUpdates) > 0 {
		params["allowed_updates"] = allowedUpdates
	}

	data, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}
	items, ok := data.([]any)
	if !ok {
		return nil, errors.New("telegram: getUpdates: unexpected result shape")
	}

	updates := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if update, isMap := item.(map[string]any); isMap {
			updates = append(updates, update)
		}
	}
	return updates, nil
}

// GetFile resolves a file_id into a file record carrying file_path.
func (c *Client) GetFile(ctx context.Context, fileID string) (map[string]any, error) {
	data, err := c.call(ctx, "getFile", map[string]any{"file_id": fileID})
	if err != nil {
		return nil, err
	}
	file, ok := data.(map[string]any)
	if !ok {
		return nil, errors.New("telegram: getFile: unexpected result shape")
	}
	return file, nil
}

// SetWebhook registers the webhook URL with Telegram.
func (c *Client) SetWebhook(ctx context.Context, url, secret string, allowedUpdates []string) error {
	params := map[string]any{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if len(allowedUpdates) > 0 {
		params["allowed_updates"] = allowedUpdates
	}
	_, err := c.call(ctx, "setWebhook", params)
	return err
}

// DeleteWebhook removes the current webhook integration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.call(ctx, "deleteWebhook", map[string]any{})
	return err
}
