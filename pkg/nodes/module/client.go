package module

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/blitz/pkg/credentials"
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/template"
	"github.com/tidwall/gjson"
)

const maxErrorBody = 1024

// APIClient calls the business API endpoints configured on module nodes. It never retries.
type APIClient struct {
	httpClient  *http.Client
	credentials credentials.Store
	logger      *slog.Logger
}

// NewAPIClient creates a client. store may be nil, in which case endpoint credentials are sent
// as configured.
func NewAPIClient(httpClient *http.Client, store credentials.Store, logger *slog.Logger) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &APIClient{
		httpClient:  httpClient,
		credentials: store,
		logger:      logger,
	}
}

// Call sends payload to endpoint and returns the `data` member of the JSON response.
// Errors are *models.ExecutionError values coded ApiCallFailed, ApiCallTimeout or ApiCallError.
func (c *APIClient) Call(ctx context.Context, endpoint models.EndpointConfig, defaultMethod string, payload map[string]any) (gjson.Result, error) {
	method := strings.ToUpper(strings.TrimSpace(endpoint.Method))
	if method == "" {
		method = defaultMethod
	}

	timeout := time.Duration(endpoint.Timeout) * time.Second
	if timeout <= 0 {
		timeout = models.DefaultAPITimeoutSeconds * time.Second
	}

	req, err := c.newRequest(ctx, method, endpoint, payload)
	if err != nil {
		return gjson.Result{}, apiCallError(endpoint.URL, method, err)
	}

	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()

	started := time.Now()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return gjson.Result{}, models.NewExecutionError(models.CodeAPICallTimeout,
				fmt.Sprintf("%s %s timed out after %s", method, endpoint.URL, timeout),
				models.WithDetails(map[string]any{
					"url":     endpoint.URL,
					"method":  method,
					"timeout": timeout.String(),
				}),
				models.WithCause(err))
		}

		return gjson.Result{}, apiCallError(endpoint.URL, method, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, apiCallError(endpoint.URL, method, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.DebugContext(ctx, "Business API answered",
		"url", endpoint.URL,
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, models.NewExecutionError(models.CodeAPICallFailed,
			fmt.Sprintf("%s %s returned HTTP %d", method, endpoint.URL, resp.StatusCode),
			models.WithDetails(map[string]any{
				"url":    endpoint.URL,
				"method": method,
				"status": resp.StatusCode,
				"body":   truncate(string(body), maxErrorBody),
			}))
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, apiCallError(endpoint.URL, method, errors.New("response is not valid JSON"))
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return gjson.Result{}, apiCallError(endpoint.URL, method, errors.New("response has no data member"))
	}

	return data, nil
}

func (c *APIClient) newRequest(ctx context.Context, method string, endpoint models.EndpointConfig, payload map[string]any) (*http.Request, error) {
	if endpoint.URL == "" {
		return nil, errors.New("endpoint url is empty")
	}

	var body io.Reader

	target, err := template.Render(endpoint.URL, payload)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint url: %w", err)
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}

		body = bytes.NewReader(raw)
	default:
		parsed, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint url: %w", err)
		}

		query := parsed.Query()
		for key, value := range payload {
			query.Set(key, queryValue(value))
		}

		parsed.RawQuery = query.Encode()
		target = parsed.String()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range endpoint.Headers {
		rendered, err := template.Render(value, payload)
		if err != nil {
			return nil, fmt.Errorf("invalid header %s: %w", key, err)
		}

		req.Header.Set(key, rendered)
	}

	if endpoint.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+credentials.DecryptOrRaw(c.credentials, endpoint.APIKey))
	}

	return req, nil
}

func queryValue(value any) string {
	switch v := value.(type) {
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(raw)
	default:
		return scalarString(v)
	}
}

// scalarString formats an extracted value without losing digits. Decoded JSON numbers are
// float64, which fmt prints in exponent form from 1e21 down to seven digits.
func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func apiCallError(url, method string, err error) *models.ExecutionError {
	return models.NewExecutionError(models.CodeAPICallError,
		fmt.Sprintf("%s %s failed: %v", method, url, err),
		models.WithDetails(map[string]any{
			"url":    url,
			"method": method,
			"error":  err.Error(),
		}),
		models.WithCause(err))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
