package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/flowchat/cmd/flowchat/ask"
	chatcmder "github.com/papercomputeco/flowchat/cmd/flowchat/chat"
	proxycmder "github.com/papercomputeco/flowchat/cmd/flowchat/proxy"
)

const rootLongDesc string = `Chat with a LangFlow flow from the terminal.

Configuration is read once at startup from an optional TOML file,
a .env file and the environment. LANGFLOW_TOKEN is required for
chat and ask.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "flowchat",
		Short:        "Terminal chat client for LangFlow flows",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(proxycmder.NewProxyCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
