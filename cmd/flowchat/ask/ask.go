package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/flowchat/pkg/chat"
	"github.com/papercomputeco/flowchat/pkg/config"
	"github.com/papercomputeco/flowchat/pkg/conversation"
	"github.com/papercomputeco/flowchat/pkg/flow"
	"github.com/papercomputeco/flowchat/pkg/logger"
)

const askLongDesc string = `Send one message to the configured flow and print the reply.

The exchange runs through the same send path as the chat UI: on
failure the "Sorry, there was an error: ..." reply is printed and
the command exits non-zero.

Examples:
  flowchat ask "What can you do?"
  flowchat ask --flow-id 3f1c... --workspace-id 9a2b... hello`

const askShortDesc string = "Send a single message and print the reply"

type askCommander struct {
	configPath  string
	envFile     string
	debug       bool
	baseURL     string
	flowID      string
	workspaceID string
	image       string
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:          "ask <text...>",
		Short:        askShortDesc,
		Long:         askLongDesc,
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Path to a .env file")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cmder.baseURL, "base-url", "", "Flow service or proxy base URL")
	cmd.Flags().StringVar(&cmder.flowID, "flow-id", "", "Flow identifier")
	cmd.Flags().StringVar(&cmder.workspaceID, "workspace-id", "", "Workspace identifier")
	cmd.Flags().StringVar(&cmder.image, "image", "", "Image reference kept with the message (not sent)")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, text string) error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	c.applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewLogger(c.debug)
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

	sendErr := screen.Send(ctx, text, c.image)

	active, ok := screen.Store().Active()
	if !ok || len(active.Messages) == 0 {
		return sendErr
	}
	reply := active.Messages[len(active.Messages)-1]

	out := cmd.OutOrStdout()
	if sendErr == nil && cfg.Markdown && isTerminal(out) {
		if rendered, err := renderMarkdown(reply.Text); err == nil {
			fmt.Fprint(out, rendered)
			return nil
		}
		log.Debug("markdown rendering failed, printing plain text")
	}

	fmt.Fprintln(out, reply.Text)
	if sendErr != nil {
		log.Debug("send failed", zap.Error(sendErr))
	}
	return sendErr
}

func (c *askCommander) applyFlags(cfg *config.Config) {
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.flowID != "" {
		cfg.FlowID = c.flowID
	}
	if c.workspaceID != "" {
		cfg.WorkspaceID = c.workspaceID
	}
	if c.debug {
		cfg.Debug = true
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func renderMarkdown(text string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return r.Render(text)
}
