package pushcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/cmd/parley/sqlitepath"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/merkle"
)

const pushLongDesc string = `Upload the local transcript DAG to a running parley server.

Every transcript (a chain of turns from a session's first message to its
latest) is walked root first and sent to the server's /dag/nodes endpoint,
parents before children. Transcripts that share turns send them once, and
turns the server already holds are counted as duplicates, so pushing again
is harmless.

Examples:
  parley push http://192.168.1.42:8080
  parley push --sqlite ~/.parley/parley.db http://localhost:8080`

const pushShortDesc string = "Upload transcripts to a parley server"

type pushCommander struct {
	sqlitePath string
	batchSize  int
}

func NewPushCmd() *cobra.Command {
	cmder := &pushCommander{}

	cmd := &cobra.Command{
		Use:   "push <server-url>",
		Short: pushShortDesc,
		Long:  pushLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to local SQLite database")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 500, "Maximum turns per HTTP request")

	return cmd
}

func (c *pushCommander) run(ctx context.Context, cmd *cobra.Command, serverURL string) error {
	serverURL = strings.TrimRight(serverURL, "/")
	if c.batchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive")
	}

	cfg, err := config.Load(bootstrap.OptionsFromCommand(cmd).ConfigPath)
	if err != nil {
		return err
	}

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath, cfg.Storage.SQLite)
	if err != nil {
		return fmt.Errorf("could not resolve local database: %w", err)
	}

	storer, err := merkle.NewSQLiteStorer(dbPath)
	if err != nil {
		return fmt.Errorf("could not open local database %s: %w", dbPath, err)
	}
	defer storer.Close()

	sink := &httpSink{endpoint: serverURL + "/dag/nodes", client: http.DefaultClient}
	report, err := merkle.Sync(ctx, storer, sink, c.batchSize)
	if err != nil {
		return fmt.Errorf("push to %s failed: %w", serverURL, err)
	}

	out := cmd.OutOrStdout()
	if report.Transcripts == 0 {
		fmt.Fprintln(out, "No local transcripts to push.")
		return nil
	}

	fmt.Fprintf(out, "Pushed %d transcripts (%d turns) from %s to %s in %d requests\n",
		report.Transcripts, report.Turns, dbPath, serverURL, sink.requests)
	fmt.Fprintf(out, "  %d new, %d already on the server, %d rejected\n",
		report.New, report.Duplicate, report.Errors)

	return nil
}

// httpSink posts node batches to a server's /dag/nodes endpoint.
type httpSink struct {
	endpoint string
	client   *http.Client
	requests int
}

func (s *httpSink) PutBatch(ctx context.Context, nodes []*merkle.Node) (merkle.SyncResult, error) {
	var result merkle.SyncResult

	body, err := json.Marshal(nodes)
	if err != nil {
		return result, fmt.Errorf("could not marshal nodes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.requests++
	resp, err := s.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return result, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("could not decode response: %w", err)
	}
	return result, nil
}
