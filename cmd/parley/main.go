package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/parley/cmd/parley/ask"
	chatcmder "github.com/papercomputeco/parley/cmd/parley/chat"
	historycmder "github.com/papercomputeco/parley/cmd/parley/history"
	mergecmder "github.com/papercomputeco/parley/cmd/parley/merge"
	pushcmder "github.com/papercomputeco/parley/cmd/parley/push"
	servecmder "github.com/papercomputeco/parley/cmd/parley/serve"
)

const rootLongDesc string = `parley is a conversational chatbot.

Each message is answered by the OpenAI chat-completion service when an
API key is available, or by a local Ollama model otherwise. Failures
are shown as the bot's reply, so a conversation never stalls.

Configuration is read from ~/.parley/config.toml and a .env file in the
working directory. OPENAI_API_KEY, PARLEY_MODE and OLLAMA_HOST override
the file.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "parley",
		Short:         "A conversational chatbot with remote and local backends",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default ~/.parley/config.toml)")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(
		chatcmder.NewChatCmd(),
		askcmder.NewAskCmd(),
		servecmder.NewServeCmd(),
		historycmder.NewHistoryCmd(),
		pushcmder.NewPushCmd(),
		mergecmder.NewMergeCmd(),
	)

	return cmd
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
