package mergecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/cmd/parley/sqlitepath"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/merkle"
)

const mergeLongDesc string = `Merge one or more transcript databases into a target.

Each source's transcripts are copied root first, so every turn lands after
its parent. Turns are content-addressed: a turn the target already holds has
the same hash and is skipped.

Examples:
  parley merge laptop.db desktop.db
  parley merge --sqlite /tmp/merged.db ~/alice/parley.db ~/bob/parley.db`

const mergeShortDesc string = "Merge transcript databases"

type mergeCommander struct {
	sqlitePath string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to target SQLite database")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	cfg, err := config.Load(bootstrap.OptionsFromCommand(cmd).ConfigPath)
	if err != nil {
		return err
	}

	targetPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath, cfg.Storage.SQLite)
	if err != nil {
		return fmt.Errorf("could not resolve target database: %w", err)
	}

	target, err := merkle.NewSQLiteStorer(targetPath)
	if err != nil {
		return fmt.Errorf("could not open target database %s: %w", targetPath, err)
	}
	defer target.Close()

	var total merkle.SyncReport
	for _, srcPath := range sources {
		report, err := mergeOne(ctx, target, srcPath)
		if err != nil {
			return err
		}
		total.Transcripts += report.Transcripts
		total.New += report.New
		total.Duplicate += report.Duplicate
		total.Errors += report.Errors

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d transcripts, %d new, %d already existed\n",
			srcPath, report.Transcripts, report.New, report.Duplicate)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d transcripts from %d sources into %s: %d new turns, %d already existed\n",
		total.Transcripts, len(sources), targetPath, total.New, total.Duplicate)
	if total.Errors > 0 {
		return fmt.Errorf("%d turns could not be merged", total.Errors)
	}
	return nil
}

func mergeOne(ctx context.Context, target merkle.Storer, srcPath string) (merkle.SyncReport, error) {
	source, err := merkle.NewSQLiteStorer(srcPath)
	if err != nil {
		return merkle.SyncReport{}, fmt.Errorf("could not open source database %s: %w", srcPath, err)
	}
	defer source.Close()

	report, err := merkle.Sync(ctx, source, merkle.StoreSink{Storer: target}, 0)
	if err != nil {
		return report, fmt.Errorf("could not merge %s: %w", srcPath, err)
	}
	return report, nil
}
