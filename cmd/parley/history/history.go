package historycmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/cmd/parley/sqlitepath"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/merkle"
)

const historyLongDesc string = `Show recorded chat transcripts.

Without arguments, lists every transcript in the database by the
hash of its latest turn. With a hash (or unique hash prefix), prints
the conversation that leads to that turn.

Examples:
  parley history
  parley history 3f9a2c
  parley history --sqlite /tmp/parley.db`

const historyShortDesc string = "Show recorded chat transcripts"

const hashPreview = 12

type historyCommander struct {
	sqlitePath string
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [hash]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := ""
			if len(args) == 1 {
				hash = args[0]
			}
			return cmder.run(cmd.Context(), cmd, hash)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite transcript database")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command, hash string) error {
	cfg, err := config.Load(bootstrap.OptionsFromCommand(cmd).ConfigPath)
	if err != nil {
		return err
	}

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath, cfg.Storage.SQLite)
	if err != nil {
		return fmt.Errorf("could not resolve database: %w", err)
	}

	storer, err := merkle.NewSQLiteStorer(dbPath)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", dbPath, err)
	}
	defer storer.Close()

	if hash == "" {
		return listTranscripts(ctx, cmd.OutOrStdout(), storer)
	}

	full, err := resolveHash(ctx, storer, hash)
	if err != nil {
		return err
	}
	return printTranscript(ctx, cmd.OutOrStdout(), storer, full)
}

func listTranscripts(ctx context.Context, out io.Writer, storer merkle.Storer) error {
	leaves, err := storer.Leaves(ctx)
	if err != nil {
		return fmt.Errorf("could not list transcripts: %w", err)
	}
	if len(leaves) == 0 {
		fmt.Fprintln(out, "No transcripts recorded.")
		return nil
	}

	for _, leaf := range leaves {
		path, err := storer.Descendants(ctx, leaf.Hash)
		if err != nil {
			return fmt.Errorf("could not load transcript %s: %w", leaf.Hash, err)
		}
		fmt.Fprintf(out, "%s  %2d turns  %s\n", leaf.Hash[:hashPreview], len(path), preview(path[0].Content.Content, 60))
	}
	return nil
}

func printTranscript(ctx context.Context, out io.Writer, storer merkle.Storer, hash string) error {
	path, err := storer.Descendants(ctx, hash)
	if err != nil {
		return fmt.Errorf("could not load transcript %s: %w", hash, err)
	}

	you := color.New(color.FgGreen, color.Bold).SprintFunc()
	bot := color.New(color.FgCyan, color.Bold).SprintFunc()

	for _, node := range path {
		turn := node.Content.Turn()
		if turn.Role == llm.RoleUser {
			fmt.Fprintf(out, "%s %s\n", you("You:"), turn.Content)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", bot("Bot:"), turn.Content)
	}
	return nil
}

// resolveHash expands a unique hash prefix to a full node hash.
func resolveHash(ctx context.Context, storer merkle.Storer, prefix string) (string, error) {
	if ok, err := storer.Has(ctx, prefix); err == nil && ok {
		return prefix, nil
	}

	nodes, err := storer.List(ctx)
	if err != nil {
		return "", fmt.Errorf("could not list nodes: %w", err)
	}

	var match string
	for _, n := range nodes {
		if !strings.HasPrefix(n.Hash, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
		}
		match = n.Hash
	}
	if match == "" {
		return "", merkle.ErrNotFound{Hash: prefix}
	}
	return match, nil
}

func preview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
