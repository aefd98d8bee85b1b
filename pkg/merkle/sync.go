package merkle

import (
	"context"
	"errors"
	"fmt"
)

// Transcript is one root-to-leaf chain of turns, root first. Transcripts
// that share a prefix (a session that branched) share those nodes.
type Transcript []*Node

// Transcripts returns every root-to-leaf chain in s, one per leaf.
func Transcripts(ctx context.Context, s Storer) ([]Transcript, error) {
	leaves, err := s.Leaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing leaves: %w", err)
	}

	transcripts := make([]Transcript, 0, len(leaves))
	for _, leaf := range leaves {
		chain, err := s.Descendants(ctx, leaf.Hash)
		if err != nil {
			return nil, fmt.Errorf("walking transcript %s: %w", leaf.Hash, err)
		}
		transcripts = append(transcripts, chain)
	}
	return transcripts, nil
}

// SyncResult counts the outcome of copying nodes into a store.
type SyncResult struct {
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
	Errors    int `json:"errors"`
}

func (r *SyncResult) add(o SyncResult) {
	r.New += o.New
	r.Duplicate += o.Duplicate
	r.Errors += o.Errors
}

// Sink receives batches of nodes, parents before children.
type Sink interface {
	PutBatch(ctx context.Context, nodes []*Node) (SyncResult, error)
}

// StoreSink writes batches into a Storer. Nodes whose hash does not match
// their content, and nodes the store fails on, are counted as errors and
// reported to OnError when it is set.
type StoreSink struct {
	Storer  Storer
	OnError func(node *Node, err error)
}

var errHashMismatch = errors.New("hash does not match content")

func (s StoreSink) PutBatch(ctx context.Context, nodes []*Node) (SyncResult, error) {
	var res SyncResult
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if node == nil || !node.Verify() {
			s.fail(node, errHashMismatch)
			res.Errors++
			continue
		}

		exists, err := s.Storer.Has(ctx, node.Hash)
		if err != nil {
			s.fail(node, fmt.Errorf("checking node: %w", err))
			res.Errors++
			continue
		}
		if exists {
			res.Duplicate++
			continue
		}

		if err := s.Storer.Put(ctx, node); err != nil {
			s.fail(node, fmt.Errorf("storing node: %w", err))
			res.Errors++
			continue
		}
		res.New++
	}
	return res, nil
}

func (s StoreSink) fail(node *Node, err error) {
	if s.OnError != nil {
		s.OnError(node, err)
	}
}

// SyncReport describes a finished Sync.
type SyncReport struct {
	SyncResult

	// Transcripts is the number of root-to-leaf chains in the source.
	Transcripts int

	// Turns is the number of distinct nodes sent.
	Turns int
}

// Sync sends every transcript of src to dst in batches of at most
// batchSize nodes (all at once when batchSize <= 0). Each node is sent
// once and always after its parent, so a sink that requires parents to
// exist can store every batch as it arrives.
func Sync(ctx context.Context, src Storer, dst Sink, batchSize int) (SyncReport, error) {
	transcripts, err := Transcripts(ctx, src)
	if err != nil {
		return SyncReport{}, err
	}

	nodes := parentFirst(transcripts)
	report := SyncReport{Transcripts: len(transcripts), Turns: len(nodes)}
	if len(nodes) == 0 {
		return report, nil
	}
	if batchSize <= 0 {
		batchSize = len(nodes)
	}

	for i := 0; i < len(nodes); i += batchSize {
		end := min(i+batchSize, len(nodes))
		res, err := dst.PutBatch(ctx, nodes[i:end])
		report.add(res)
		if err != nil {
			return report, fmt.Errorf("batch %d-%d: %w", i, end-1, err)
		}
	}
	return report, nil
}

// parentFirst flattens transcripts into distinct nodes, each after its parent.
func parentFirst(transcripts []Transcript) []*Node {
	seen := make(map[string]bool)
	var nodes []*Node
	for _, t := range transcripts {
		for _, n := range t {
			if seen[n.Hash] {
				continue
			}
			seen[n.Hash] = true
			nodes = append(nodes, n)
		}
	}
	return nodes
}
