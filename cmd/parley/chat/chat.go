package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/tui"
)

const chatLongDesc string = `Start an interactive chat session.

On a terminal this opens the full-screen client; otherwise it reads
one message per line from stdin. Type /clear to clear the history.

The backend is chosen per message: with an OpenAI key the remote
service answers, otherwise the local generator does. --mode forces
either one.

Examples:
  parley chat
  parley chat --mode local --temperature 0.2
  echo "hello" | parley chat --plain`

const chatShortDesc string = "Start an interactive chat session"

type chatCommander struct {
	flags bootstrap.SettingsFlags
	plain bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.flags.Register(cmd)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use the line-based client even on a terminal")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	interactive := !c.plain && isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout())

	opts := bootstrap.OptionsFromCommand(cmd)
	if interactive {
		logPath, err := logFilePath()
		if err != nil {
			return err
		}
		opts.LogPath = logPath
	} else {
		opts.LogWriter = cmd.ErrOrStderr()
	}

	rt, err := bootstrap.New(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	settings, err := c.flags.Apply(cmd, rt.Settings())
	if err != nil {
		return err
	}

	session := chat.NewSession("cli", rt.Dispatcher, rt.Storer, settings, rt.Logger)

	if interactive {
		return tui.Run(ctx, session)
	}
	return repl(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
}

// repl runs the line-based client until input ends or the user types exit.
func repl(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	you, bot := promptColors(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, you("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case "exit", "/quit":
			return nil
		case tui.ClearCommand:
			session.ClearHistory()
			fmt.Fprintln(out, "History cleared.")
			continue
		}
		if line == "" {
			continue
		}

		reply, err := session.Submit(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n\n", bot("Bot:"), reply.Turn.Content)
	}

	return scanner.Err()
}

// promptColors returns the "You:" and "Bot:" styles for out. Whether to
// color follows out's own color profile (NO_COLOR and CLICOLOR_FORCE
// included) rather than stdout's.
func promptColors(out io.Writer) (you, bot func(a ...any) string) {
	youColor := color.New(color.FgGreen, color.Bold)
	botColor := color.New(color.FgCyan, color.Bold)

	if termenv.NewOutput(out).EnvColorProfile() == termenv.Ascii {
		youColor.DisableColor()
		botColor.DisableColor()
	} else {
		youColor.EnableColor()
		botColor.EnableColor()
	}
	return youColor.SprintFunc(), botColor.SprintFunc()
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// logFilePath returns ~/.parley/parley.log, creating the directory.
func logFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".parley")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return filepath.Join(dir, "parley.log"), nil
}
