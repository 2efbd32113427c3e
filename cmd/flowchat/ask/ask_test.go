package askcmder_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	askcmder "github.com/papercomputeco/flowchat/cmd/flowchat/ask"
	"github.com/papercomputeco/flowchat/pkg/config"
	"github.com/papercomputeco/flowchat/pkg/flow"
)

func setEnv(key, value string) {
	prev, had := os.LookupEnv(key)
	if value == "" {
		Expect(os.Unsetenv(key)).To(Succeed())
	} else {
		Expect(os.Setenv(key, value)).To(Succeed())
	}
	DeferCleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

var _ = Describe("ask", func() {
	var (
		server  *httptest.Server
		calls   atomic.Int32
		status  int
		reply   string
		envFile string
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		calls.Store(0)
		status = http.StatusOK
		reply = `{"outputs":[{"outputs":[{"outputs":{"message":{"message":{"text":"Hi there"}}}}]}]}`
		envFile = filepath.Join(GinkgoT().TempDir(), "missing.env")
		out = &bytes.Buffer{}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			var body flow.RunRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)

		setEnv(config.EnvToken, "test-token")
		setEnv(config.EnvBaseURL, "")
		setEnv(config.EnvFlowID, "")
		setEnv(config.EnvWorkspaceID, "")
	})

	run := func(args ...string) error {
		cmd := askcmder.NewAskCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{
			"--env-file", envFile,
			"--base-url", server.URL,
			"--flow-id", "flow-1",
			"--workspace-id", "ws-1",
		}, args...))
		return cmd.Execute()
	}

	It("prints the bot reply", func() {
		Expect(run("Hello", "there")).To(Succeed())
		Expect(out.String()).To(Equal("Hi there\n"))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("prints the error reply and fails on an API error", func() {
		status = http.StatusInternalServerError
		reply = `{"error":"boom"}`

		err := run("Hello")
		Expect(err).To(HaveOccurred())

		var apiErr flow.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(out.String()).To(HavePrefix("Sorry, there was an error: "))
		Expect(out.String()).To(ContainSubstring("API Error: 500 Internal Server Error"))
	})

	It("fails with a shape error when the reply text is missing", func() {
		reply = `{"outputs":[]}`

		err := run("Hello")
		var shapeErr flow.ResponseShapeError
		Expect(errors.As(err, &shapeErr)).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Invalid response format from API"))
	})

	It("refuses to start without a token", func() {
		setEnv(config.EnvToken, "")

		err := run("Hello")
		var cfgErr flow.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("LANGFLOW_TOKEN"))
		Expect(calls.Load()).To(BeZero())
		Expect(out.String()).To(BeEmpty())
	})

	It("requires message text", func() {
		cmd := askcmder.NewAskCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--env-file", envFile})
		Expect(cmd.Execute()).To(HaveOccurred())
		Expect(calls.Load()).To(BeZero())
	})
})
