package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/flowchat/pkg/chat"
	"github.com/papercomputeco/flowchat/pkg/config"
	"github.com/papercomputeco/flowchat/pkg/conversation"
	"github.com/papercomputeco/flowchat/pkg/flow"
	"github.com/papercomputeco/flowchat/pkg/logger"
	"github.com/papercomputeco/flowchat/pkg/ui"
)

const chatLongDesc string = `Open the interactive chat.

Messages are sent to the configured LangFlow flow. Conversations
live in memory for the lifetime of the process. Logs are written to
a rotating file (FLOWCHAT_LOG_FILE, default ~/.flowchat/flowchat.log)
so they do not interfere with the terminal UI.

Examples:
  flowchat chat
  flowchat chat --config ~/.flowchat/config.toml --debug`

const chatShortDesc string = "Open the interactive chat"

var errNotTerminal = errors.New("chat requires an interactive terminal, use 'flowchat ask' instead")

type chatCommander struct {
	configPath  string
	envFile     string
	debug       bool
	noMarkdown  bool
	baseURL     string
	flowID      string
	workspaceID string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:          "chat",
		Short:        chatShortDesc,
		Long:         chatLongDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Path to a .env file")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cmder.noMarkdown, "no-markdown", false, "Show bot replies as plain text")
	cmd.Flags().StringVar(&cmder.baseURL, "base-url", "", "Flow service or proxy base URL")
	cmd.Flags().StringVar(&cmder.flowID, "flow-id", "", "Flow identifier")
	cmd.Flags().StringVar(&cmder.workspaceID, "workspace-id", "", "Workspace identifier")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotTerminal
	}

	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.flowID != "" {
		cfg.FlowID = c.flowID
	}
	if c.workspaceID != "" {
		cfg.WorkspaceID = c.workspaceID
	}
	if c.noMarkdown {
		cfg.Markdown = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer, err := logger.NewFileLogger(cfg.LogPath(), c.debug || cfg.Debug)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	defer closer.Close()
	defer log.Sync()

	client, err := flow.NewClient(flow.Config{BaseURL: cfg.BaseURL, Token: cfg.Token}, log)
	if err != nil {
		return err
	}

	screen, err := chat.New(client, chat.Config{
		FlowID:      cfg.FlowID,
		WorkspaceID: cfg.WorkspaceID,
	}, conversation.NewStore(), log)
	if err != nil {
		return err
	}

	log.Info("starting chat",
		zap.String("base_url", cfg.BaseURL),
		zap.String("flow_id", cfg.FlowID),
		zap.String("workspace_id", cfg.WorkspaceID),
	)

	ui.SetColor(true)
	model := ui.NewModel(ctx, screen, log, ui.Options{Markdown: cfg.Markdown})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat exited: %w", err)
	}

	log.Info("chat closed", zap.Int("conversations", screen.Store().Len()))
	return nil
}
