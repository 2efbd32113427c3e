package flow_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/papercomputeco/flowchat/pkg/flow"
)

const helloBody = `{"outputs":[{"outputs":[{"outputs":{"message":{"message":{"text":"hi"}}}}]}]}`

var _ = Describe("Client", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		handler http.HandlerFunc
		calls   atomic.Int32
		client  *flow.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		calls.Store(0)
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, helloBody)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			handler(w, r)
		}))

		var err error
		client, err = flow.NewClient(flow.Config{
			BaseURL: server.URL + "/api/langflow",
			Token:   "secret-token",
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewClient", func() {
		It("fails fast without a base URL", func() {
			c, err := flow.NewClient(flow.Config{Token: "t"}, nil)
			Expect(c).To(BeNil())

			var cfgErr flow.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cfgErr))
			Expect(err.(flow.ConfigurationError).Field).To(Equal("base URL"))
		})

		It("fails fast without a token", func() {
			c, err := flow.NewClient(flow.Config{BaseURL: "http://localhost"}, nil)
			Expect(c).To(BeNil())
			Expect(err).To(Equal(flow.ConfigurationError{Field: "token"}))
		})
	})

	Describe("Run", func() {
		It("returns the reply text on success", func() {
			reply, err := client.Run(ctx, "flow-1", "ws-1", "Hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("hi"))
		})

		It("posts the run request with auth and JSON headers", func() {
			var (
				gotPath string
				gotReq  flow.RunRequest
				headers http.Header
			)
			handler = func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				headers = r.Header.Clone()
				_ = json.NewDecoder(r.Body).Decode(&gotReq)
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, helloBody)
			}

			_, err := client.Run(ctx, "flow-1", "ws-1", "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(gotPath).To(Equal("/api/langflow/lf/ws-1/api/v1/run/flow-1"))
			Expect(headers.Get("Authorization")).To(Equal("Bearer secret-token"))
			Expect(headers.Get("Content-Type")).To(Equal("application/json"))
			Expect(headers.Get("Accept")).To(Equal("application/json"))
			Expect(gotReq.InputValue).To(Equal("Hello"))
			Expect(gotReq.InputType).To(Equal("chat"))
			Expect(gotReq.OutputType).To(Equal("chat"))
			Expect(gotReq.Tweaks).To(BeEmpty())
			Expect(gotReq.Tweaks).NotTo(BeNil())
		})

		DescribeTable("rejects empty arguments before any network call",
			func(flowID, workspaceID, input string) {
				_, err := client.Run(ctx, flowID, workspaceID, input)

				var argErr flow.InvalidArgumentError
				Expect(err).To(BeAssignableToTypeOf(argErr))
				Expect(calls.Load()).To(BeZero())
			},
			Entry("empty flow id", "", "ws", "hi"),
			Entry("empty workspace id", "flow", "", "hi"),
			Entry("empty input", "flow", "ws", ""),
		)

		It("fails with APIError carrying the status on 500", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"detail":"boom"}`)
			}

			_, err := client.Run(ctx, "flow", "ws", "hi")
			Expect(err).To(Equal(flow.APIError{StatusCode: 500, Status: "Internal Server Error"}))
			Expect(err.Error()).To(Equal("API Error: 500 Internal Server Error"))
		})

		It("reports APIError even when the error body is not JSON", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, "<html>bad gateway</html>")
			}

			_, err := client.Run(ctx, "flow", "ws", "hi")
			var apiErr flow.APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.(flow.APIError).StatusCode).To(Equal(502))
		})

		It("fails with ResponseFormatError on a non-JSON success body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = io.WriteString(w, "<html>login</html>")
			}

			_, err := client.Run(ctx, "flow", "ws", "hi")
			var formatErr flow.ResponseFormatError
			Expect(err).To(BeAssignableToTypeOf(formatErr))
			Expect(err.Error()).NotTo(ContainSubstring("<html>"))
		})

		It("logs long non-JSON bodies truncated on a rune boundary", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = io.WriteString(w, "x"+strings.Repeat("é", 3000))
			}
			core, logs := observer.New(zapcore.ErrorLevel)
			c, err := flow.NewClient(flow.Config{BaseURL: server.URL, Token: "t"}, zap.New(core))
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Run(ctx, "flow", "ws", "hi")
			var formatErr flow.ResponseFormatError
			Expect(err).To(BeAssignableToTypeOf(formatErr))

			entries := logs.FilterField(zap.String("content_type", "text/plain")).All()
			Expect(entries).To(HaveLen(1))
			body, ok := entries[0].ContextMap()["body"].(string)
			Expect(ok).To(BeTrue())
			Expect(utf8.ValidString(body)).To(BeTrue())
			Expect(body).To(HaveSuffix("..."))
			Expect(utf8.RuneCountInString(body)).To(BeNumerically("<=", 2048))
		})

		It("fails with ResponseFormatError when the JSON does not parse", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				_, _ = io.WriteString(w, `{"outputs": [`)
			}

			_, err := client.Run(ctx, "flow", "ws", "hi")
			var formatErr flow.ResponseFormatError
			Expect(err).To(BeAssignableToTypeOf(formatErr))
		})

		DescribeTable("fails with ResponseShapeError on malformed bodies",
			func(body string) {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					_, _ = io.WriteString(w, body)
				}

				_, err := client.Run(ctx, "flow", "ws", "hi")
				var shapeErr flow.ResponseShapeError
				Expect(err).To(BeAssignableToTypeOf(shapeErr))
				Expect(err.Error()).To(HavePrefix("Invalid response format from API"))
			},
			Entry("empty outputs", `{"outputs":[]}`),
			Entry("no outputs key", `{}`),
			Entry("empty inner outputs", `{"outputs":[{"outputs":[]}]}`),
			Entry("missing message", `{"outputs":[{"outputs":[{"outputs":{}}]}]}`),
			Entry("missing text", `{"outputs":[{"outputs":[{"outputs":{"message":{"message":{}}}}]}]}`),
			Entry("text is not a string", `{"outputs":[{"outputs":[{"outputs":{"message":{"message":{"text":7}}}}]}]}`),
			Entry("outputs is not an array", `{"outputs":{}}`),
		)

		It("fails with NetworkError when the service is unreachable", func() {
			server.Close()

			_, err := client.Run(ctx, "flow", "ws", "hi")
			var netErr flow.NetworkError
			Expect(err).To(BeAssignableToTypeOf(netErr))
			Expect(err.(flow.NetworkError).Unwrap()).To(HaveOccurred())
		})

		It("resends cookies set by the service", func() {
			var sawCookie atomic.Bool
			handler = func(w http.ResponseWriter, r *http.Request) {
				if _, err := r.Cookie("lf_session"); err == nil {
					sawCookie.Store(true)
				}
				http.SetCookie(w, &http.Cookie{Name: "lf_session", Value: "abc", Path: "/"})
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, helloBody)
			}

			_, err := client.Run(ctx, "flow", "ws", "one")
			Expect(err).NotTo(HaveOccurred())
			_, err = client.Run(ctx, "flow", "ws", "two")
			Expect(err).NotTo(HaveOccurred())
			Expect(sawCookie.Load()).To(BeTrue())
		})
	})

	Describe("RunFlow", func() {
		It("passes custom options through", func() {
			var gotReq flow.RunRequest
			handler = func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&gotReq)
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, helloBody)
			}

			resp, err := client.RunFlow(ctx, "flow", "ws", "hi", flow.RunOptions{
				InputType: flow.TypeText,
				Tweaks:    map[string]any{"Prompt-1": map[string]any{"template": "x"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Outputs).To(HaveLen(1))
			Expect(gotReq.InputType).To(Equal("text"))
			Expect(gotReq.OutputType).To(Equal("chat"))
			Expect(gotReq.Tweaks).To(HaveKey("Prompt-1"))
		})
	})
})
