package proxycmder

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/flowchat/pkg/config"
	"github.com/papercomputeco/flowchat/pkg/logger"
	"github.com/papercomputeco/flowchat/proxy"
)

const proxyLongDesc string = `Run the forwarding proxy.

Requests under the path prefix (default /api/langflow) are forwarded
to the upstream LangFlow service with their Authorization header.
Completed run exchanges are kept in an in-memory content-addressed
history, served at /dag/stats and /dag/history.

Point the chat at the proxy with LANGFLOW_BASE_URL, for example
http://localhost:8080/api/langflow.

Examples:
  flowchat proxy
  flowchat proxy --listen :9090 --upstream https://langflow.internal`

const proxyShortDesc string = "Run the forwarding proxy"

type proxyCommander struct {
	configPath string
	envFile    string
	debug      bool
	listen     string
	upstream   string
	prefix     string
}

func NewProxyCmd() *cobra.Command {
	cmder := &proxyCommander{}

	cmd := &cobra.Command{
		Use:          "proxy",
		Short:        proxyShortDesc,
		Long:         proxyLongDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Path to a .env file")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on")
	cmd.Flags().StringVarP(&cmder.upstream, "upstream", "u", "", "Upstream LangFlow URL")
	cmd.Flags().StringVar(&cmder.prefix, "prefix", "", "Path prefix to forward")

	return cmd
}

func (c *proxyCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.Proxy.ListenAddr = c.listen
	}
	if c.upstream != "" {
		cfg.Proxy.UpstreamURL = c.upstream
	}
	if c.prefix != "" {
		cfg.Proxy.PathPrefix = c.prefix
	}
	if err := cfg.ValidateProxy(); err != nil {
		return err
	}

	log := logger.NewLogger(c.debug || cfg.Debug)
	defer log.Sync()

	p, err := proxy.New(proxy.Config{
		ListenAddr:  cfg.Proxy.ListenAddr,
		UpstreamURL: cfg.Proxy.UpstreamURL,
		PathPrefix:  cfg.Proxy.PathPrefix,
	}, log)
	if err != nil {
		return fmt.Errorf("could not create proxy: %w", err)
	}
	defer p.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("proxy stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down proxy")
		if err := p.Shutdown(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
			return err
		}
		return nil
	}
}
