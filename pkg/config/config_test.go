package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowchat/pkg/config"
	"github.com/papercomputeco/flowchat/pkg/flow"
)

var allEnv = []string{
	config.EnvToken,
	config.EnvBaseURL,
	config.EnvFlowID,
	config.EnvWorkspaceID,
	config.EnvUpstreamURL,
	config.EnvLogFile,
}

var _ = Describe("Load", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		for _, key := range allEnv {
			if prev, ok := os.LookupEnv(key); ok {
				DeferCleanup(os.Setenv, key, prev)
			} else {
				DeferCleanup(os.Unsetenv, key)
			}
			Expect(os.Unsetenv(key)).To(Succeed())
		}
	})

	It("returns defaults without a file", func() {
		cfg, err := config.Load("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.BaseURL).To(Equal("http://localhost:8080/api/langflow"))
		Expect(cfg.Proxy.PathPrefix).To(Equal("/api/langflow"))
		Expect(cfg.Proxy.ListenAddr).To(Equal(":8080"))
	})

	It("reads the TOML file and lets the environment override it", func() {
		path := filepath.Join(tmpDir, "flowchat.toml")
		Expect(os.WriteFile(path, []byte(`
base_url = "http://flows.internal/api/langflow"
flow_id = "file-flow"
workspace_id = "file-ws"
markdown = true

[proxy]
listen = ":9090"
`), 0o600)).To(Succeed())
		Expect(os.Setenv(config.EnvFlowID, "env-flow")).To(Succeed())

		cfg, err := config.Load(path, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.BaseURL).To(Equal("http://flows.internal/api/langflow"))
		Expect(cfg.FlowID).To(Equal("env-flow"))
		Expect(cfg.WorkspaceID).To(Equal("file-ws"))
		Expect(cfg.Markdown).To(BeTrue())
		Expect(cfg.Proxy.ListenAddr).To(Equal(":9090"))
		Expect(cfg.Proxy.PathPrefix).To(Equal("/api/langflow"))
	})

	It("fails on an explicit config path that does not exist", func() {
		_, err := config.Load(filepath.Join(tmpDir, "missing.toml"), "")
		Expect(err).To(HaveOccurred())
	})

	It("loads the token from a .env file and ignores a missing one", func() {
		envPath := filepath.Join(tmpDir, ".env")
		Expect(os.WriteFile(envPath, []byte("LANGFLOW_TOKEN=from-dotenv\n"), 0o600)).To(Succeed())

		cfg, err := config.Load("", envPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Token).To(Equal("from-dotenv"))

		_, err = config.Load("", filepath.Join(tmpDir, "nope.env"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("never reads the token from the TOML file", func() {
		path := filepath.Join(tmpDir, "flowchat.toml")
		Expect(os.WriteFile(path, []byte(`Token = "leaked"`), 0o600)).To(Succeed())

		cfg, err := config.Load(path, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Token).To(BeEmpty())
	})
})

var _ = Describe("Validate", func() {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Token = "t"
		cfg.FlowID = "f"
		cfg.WorkspaceID = "w"
		return cfg
	}

	It("accepts a complete configuration", func() {
		Expect(valid().Validate()).To(Succeed())
	})

	It("reports a missing token as a configuration error", func() {
		cfg := valid()
		cfg.Token = ""
		Expect(cfg.Validate()).To(Equal(flow.ConfigurationError{Field: "token"}))
	})

	It("reports missing flow coordinates", func() {
		cfg := valid()
		cfg.WorkspaceID = ""
		Expect(cfg.Validate()).To(Equal(flow.ConfigurationError{Field: "workspace id"}))
	})

	It("validates the proxy prefix", func() {
		cfg := valid()
		cfg.Proxy.PathPrefix = "api"
		Expect(cfg.ValidateProxy()).To(Equal(flow.ConfigurationError{Field: "proxy path prefix"}))
	})

	It("defaults the log path under the home directory", func() {
		cfg := valid()
		Expect(cfg.LogPath()).To(HaveSuffix(filepath.Join(".flowchat", "flowchat.log")))
		cfg.LogFile = "/tmp/x.log"
		Expect(cfg.LogPath()).To(Equal("/tmp/x.log"))
	})
})
