// Package proxy forwards flow-execution calls from the chat client to the
// LangFlow service under a fixed path prefix and records each run exchange
// in an in-memory Merkle DAG for inspection.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/flowchat/pkg/flow"
	"github.com/papercomputeco/flowchat/pkg/merkle"
)

// Headers copied from the client to the upstream request.
var forwardedRequestHeaders = []string{
	fiber.HeaderAuthorization,
	fiber.HeaderContentType,
	fiber.HeaderAccept,
	fiber.HeaderCookie,
}

var runPath = regexp.MustCompile(`^lf/([^/]+)/api/v1/run/([^/?]+)$`)

// Proxy is a transparent forwarder in front of the flow service. It holds no
// conversation state beyond the in-memory exchange DAG.
type Proxy struct {
	config     Config
	storer     merkle.Storer
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
}

// New creates a new Proxy.
func New(config Config, logger *zap.Logger) (*Proxy, error) {
	if config.UpstreamURL == "" {
		return nil, flow.ConfigurationError{Field: "proxy upstream URL"}
	}
	if config.PathPrefix == "" {
		config.PathPrefix = DefaultPathPrefix
	}
	config.PathPrefix = "/" + strings.Trim(config.PathPrefix, "/")
	config.UpstreamURL = strings.TrimRight(config.UpstreamURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	p := &Proxy{
		config: config,
		storer: merkle.NewMemoryStorer(),
		logger: logger,
		server: app,
		httpClient: &http.Client{
			// Flows that call LLMs can be slow
			Timeout: 5 * time.Minute,
		},
	}

	app.All(config.PathPrefix+"/*", p.handleForward)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	// Exchange inspection endpoints
	app.Get("/dag/stats", p.handleDAGStats)
	app.Get("/dag/history", p.handleListHistories)
	app.Get("/dag/history/:hash", p.handleGetHistory)

	return p, nil
}

// Run starts the proxy server on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("prefix", p.config.PathPrefix),
		zap.String("upstream", p.config.UpstreamURL),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (p *Proxy) RunWithListener(ln net.Listener) error {
	return p.server.Listener(ln)
}

// Handler exposes the proxy as a net/http handler.
func (p *Proxy) Handler() http.HandlerFunc {
	return adaptor.FiberApp(p.server)
}

// Shutdown stops the server and waits for in-flight requests.
func (p *Proxy) Shutdown() error {
	return p.server.Shutdown()
}

// Close releases the exchange store.
func (p *Proxy) Close() error {
	return p.storer.Close()
}

// handleForward relays a request below the path prefix to the upstream
// service and returns the upstream status, content type and body unchanged.
func (p *Proxy) handleForward(c *fiber.Ctx) error {
	startTime := time.Now()
	path := c.Params("*")

	target := p.config.UpstreamURL + "/" + path
	if qs := c.Request().URI().QueryString(); len(qs) > 0 {
		target += "?" + string(qs)
	}

	// fasthttp reuses the body buffer once the handler returns.
	reqBody := bytes.Clone(c.Body())

	httpReq, err := http.NewRequestWithContext(c.Context(), c.Method(), target, bytes.NewReader(reqBody))
	if err != nil {
		p.logger.Error("failed to create upstream request", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(flow.ErrorResponse{Error: "internal error"})
	}
	for _, h := range forwardedRequestHeaders {
		if v := c.Get(h); v != "" {
			httpReq.Header.Set(h, v)
		}
	}

	p.logger.Debug("forwarding request to upstream",
		zap.String("method", c.Method()),
		zap.String("url", target),
		zap.Int("body_size", len(reqBody)),
	)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.Error("upstream request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(flow.ErrorResponse{Error: "upstream request failed"})
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		p.logger.Error("failed to read upstream response", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(flow.ErrorResponse{Error: "upstream read failed"})
	}

	p.logger.Debug("received response from upstream",
		zap.Int("status", httpResp.StatusCode),
		zap.String("content_type", httpResp.Header.Get(fiber.HeaderContentType)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 && c.Method() == fiber.MethodPost {
		if m := runPath.FindStringSubmatch(path); m != nil {
			p.recordExchange(c.Context(), m[1], m[2], reqBody, respBody)
		}
	}

	if ct := httpResp.Header.Get(fiber.HeaderContentType); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	for _, cookie := range httpResp.Header.Values(fiber.HeaderSetCookie) {
		c.Response().Header.Add(fiber.HeaderSetCookie, cookie)
	}

	return c.Status(httpResp.StatusCode).Send(respBody)
}

// recordExchange stores a run prompt and its reply as a two-node branch.
// Failures are logged and never affect the forwarded response.
func (p *Proxy) recordExchange(ctx context.Context, workspaceID, flowID string, reqBody, respBody []byte) {
	var req flow.RunRequest
	if err := json.Unmarshal(reqBody, &req); err != nil {
		p.logger.Debug("not recording exchange: unparsable request", zap.Error(err))
		return
	}

	var resp flow.RunResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		p.logger.Debug("not recording exchange: unparsable response", zap.Error(err))
		return
	}
	reply, err := resp.ReplyText()
	if err != nil {
		p.logger.Debug("not recording exchange", zap.Error(err))
		return
	}

	hash, err := p.storeExchange(ctx, workspaceID, flowID, req.InputValue, reply)
	if err != nil {
		p.logger.Error("failed to store exchange", zap.Error(err))
		return
	}
	p.logger.Info("exchange stored", zap.String("head_hash", truncate(hash, 16)))
}

func (p *Proxy) storeExchange(ctx context.Context, workspaceID, flowID, input, reply string) (string, error) {
	prompt := merkle.NewNode(merkle.Bucket{
		Type:        "message",
		Role:        "user",
		Text:        input,
		FlowID:      flowID,
		WorkspaceID: workspaceID,
	}, nil)
	if _, err := p.storer.Put(ctx, prompt); err != nil {
		return "", fmt.Errorf("storing prompt node: %w", err)
	}

	answer := merkle.NewNode(merkle.Bucket{
		Type:        "message",
		Role:        "bot",
		Text:        reply,
		FlowID:      flowID,
		WorkspaceID: workspaceID,
	}, prompt)
	if _, err := p.storer.Put(ctx, answer); err != nil {
		return "", fmt.Errorf("storing reply node: %w", err)
	}

	return answer.Hash, nil
}

// handleDAGStats returns statistics about the exchange DAG.
func (p *Proxy) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.Context()

	nodes, err := p.storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(flow.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := p.storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(flow.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := p.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(flow.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes": len(nodes),
		"root_count":  len(roots),
		"leaf_count":  len(leaves),
	})
}

// HistoryResponse is the exchange leading up to a node.
type HistoryResponse struct {
	// Messages in chronological order (prompt first)
	Messages []HistoryMessage `json:"messages"`
	HeadHash string           `json:"head_hash"`
	Depth    int              `json:"depth"`
}

// HistoryMessage represents a message in an exchange history.
type HistoryMessage struct {
	Hash        string  `json:"hash"`
	ParentHash  *string `json:"parent_hash,omitempty"`
	Role        string  `json:"role"`
	Text        string  `json:"text"`
	FlowID      string  `json:"flow_id,omitempty"`
	WorkspaceID string  `json:"workspace_id,omitempty"`
}

// handleListHistories returns one history per leaf node.
func (p *Proxy) handleListHistories(c *fiber.Ctx) error {
	ctx := c.Context()

	leaves, err := p.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(flow.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := p.buildHistory(ctx, leaf.Hash)
		if err != nil {
			p.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

// handleGetHistory returns the history leading up to a given node.
func (p *Proxy) handleGetHistory(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(flow.ErrorResponse{Error: "hash parameter required"})
	}

	history, err := p.buildHistory(c.Context(), hash)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(flow.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(history)
}

func (p *Proxy) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	// Ancestry is newest first
	ancestry, err := p.storer.Ancestry(ctx, hash)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, len(ancestry))
	for i, node := range ancestry {
		messages[len(ancestry)-1-i] = HistoryMessage{
			Hash:        node.Hash,
			ParentHash:  node.ParentHash,
			Role:        node.Bucket.Role,
			Text:        node.Bucket.Text,
			FlowID:      node.Bucket.FlowID,
			WorkspaceID: node.Bucket.WorkspaceID,
		}
	}

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}

func truncate(s string, maxLen int) string {
	return ansi.Truncate(strings.ReplaceAll(s, "\n", " "), maxLen, "...")
}
