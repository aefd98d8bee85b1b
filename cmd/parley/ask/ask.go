package askcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/chat"
)

const askLongDesc string = `Ask a single question and print the answer.

The question is submitted as the first turn of a fresh session.
Backend failures are printed as the answer, like in the chat client.

Examples:
  parley ask "What is the capital of France?"
  parley ask --mode local "Tell me a joke"`

const askShortDesc string = "Ask a single question"

type askCommander struct {
	flags   bootstrap.SettingsFlags
	verbose bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmder.flags.Register(cmd)
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Print the backend and model that answered")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, question string) error {
	opts := bootstrap.OptionsFromCommand(cmd)
	opts.LogWriter = cmd.ErrOrStderr()

	rt, err := bootstrap.New(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	settings, err := c.flags.Apply(cmd, rt.Settings())
	if err != nil {
		return err
	}

	session := chat.NewSession("ask", rt.Dispatcher, rt.Storer, settings, rt.Logger)
	reply, err := session.Submit(ctx, question)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Turn.Content)
	if c.verbose {
		dim := color.New(color.Faint).SprintfFunc()
		fmt.Fprintln(cmd.ErrOrStderr(), dim("backend=%s model=%s duration=%s", reply.Backend, reply.Model, reply.Duration))
	}
	return nil
}
