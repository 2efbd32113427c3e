package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

const (
	jsonContentType = "application/json"
	maxLoggedBody   = 2048
)

// Config is the flow client configuration.
type Config struct {
	// BaseURL of the flow service or of the /api/langflow proxy in front of it
	// (e.g., "http://localhost:8080/api/langflow").
	BaseURL string

	// Token is the static bearer token sent on every call.
	Token string

	// HTTPClient is optional. When nil a client with a cookie jar and no
	// timeout is used.
	HTTPClient *http.Client
}

// Client executes flows on the remote service. Each call is a single attempt:
// no retries, no caching, no timeout beyond the caller's context.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. It fails with a ConfigurationError when the base
// URL or the token is empty.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ConfigurationError{Field: "base URL"}
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ConfigurationError{Field: "token"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Run sends inputText to the flow and returns the bot reply text.
func (c *Client) Run(ctx context.Context, flowID, workspaceID, inputText string) (string, error) {
	resp, err := c.RunFlow(ctx, flowID, workspaceID, inputText, RunOptions{})
	if err != nil {
		return "", err
	}

	return resp.ReplyText()
}

// RunFlow posts a run request and returns the decoded response without
// extracting the reply.
func (c *Client) RunFlow(ctx context.Context, flowID, workspaceID, inputText string, opts RunOptions) (*RunResponse, error) {
	var missing []string
	if flowID == "" {
		missing = append(missing, "flowId")
	}
	if workspaceID == "" {
		missing = append(missing, "workspaceId")
	}
	if inputText == "" {
		missing = append(missing, "inputValue")
	}
	if len(missing) > 0 {
		return nil, InvalidArgumentError{Fields: missing}
	}

	endpoint := "/lf/" + url.PathEscape(workspaceID) + "/api/v1/run/" + url.PathEscape(flowID)
	body, err := c.post(ctx, endpoint, newRunRequest(inputText, opts))
	if err != nil {
		return nil, err
	}

	var resp RunResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ResponseShapeError{Path: typeErr.Field}
		}
		return nil, ResponseFormatError{ContentType: jsonContentType, Err: err}
	}

	return &resp, nil
}

// post sends body as JSON and returns the raw response body once the status
// and content type have been validated.
func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	target := c.baseURL + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", jsonContentType)
	httpReq.Header.Set("Accept", jsonContentType)

	c.logger.Debug("posting flow run",
		zap.String("url", target),
		zap.Int("body_size", len(reqBody)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("flow request failed", zap.Error(err))
		return nil, NetworkError{Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.logger.Error("failed to read flow response", zap.Error(err))
		return nil, NetworkError{Err: err}
	}

	contentType := httpResp.Header.Get("Content-Type")
	isJSON := isJSONContentType(contentType)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		fields := []zap.Field{
			zap.Int("status", httpResp.StatusCode),
			zap.String("content_type", contentType),
		}
		if !isJSON {
			fields = append(fields, zap.String("body", truncate(string(body), maxLoggedBody)))
		}
		c.logger.Error("flow service returned error", fields...)
		return nil, APIError{
			StatusCode: httpResp.StatusCode,
			Status:     statusText(httpResp),
		}
	}

	if !isJSON || !json.Valid(body) {
		c.logger.Error("received non-JSON response",
			zap.String("content_type", contentType),
			zap.String("body", truncate(string(body), maxLoggedBody)),
		)
		return nil, ResponseFormatError{ContentType: contentType}
	}

	return body, nil
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, jsonContentType)
	}

	return mediaType == jsonContentType || strings.HasSuffix(mediaType, "+json")
}

// statusText strips the numeric code from resp.Status ("500 Internal Server
// Error" -> "Internal Server Error").
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}

	return http.StatusText(resp.StatusCode)
}

// truncate shortens s to at most maxLen cells without splitting a rune.
func truncate(s string, maxLen int) string {
	return ansi.Truncate(s, maxLen, "...")
}
