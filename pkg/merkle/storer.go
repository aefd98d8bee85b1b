package merkle

import (
	"context"
	"errors"
)

// Storer persists and traverses transcript nodes.
// De-duplication happens via content-addressing: identical turns with identical
// parents produce identical hashes and are stored once.
type Storer interface {
	// Put stores a node. Storing a hash that already exists is a no-op.
	Put(ctx context.Context, node *Node) error

	// Get returns the node with the given hash, or ErrNotFound.
	Get(ctx context.Context, hash string) (*Node, error)

	// Has reports whether a node with the given hash is stored.
	Has(ctx context.Context, hash string) (bool, error)

	// GetByParent returns the children of parentHash; nil selects roots.
	GetByParent(ctx context.Context, parentHash *string) ([]*Node, error)

	// List returns every stored node in insertion order.
	List(ctx context.Context) ([]*Node, error)

	// Roots returns nodes without a parent (first turns of a transcript).
	Roots(ctx context.Context) ([]*Node, error)

	// Leaves returns nodes without children (latest turns of a transcript).
	Leaves(ctx context.Context) ([]*Node, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	// Descendants returns the path from root to node (root first, node last).
	Descendants(ctx context.Context, hash string) ([]*Node, error)

	// Depth returns the number of ancestors of a node (0 for roots).
	Depth(ctx context.Context, hash string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

var errNilNode = errors.New("cannot store nil node")

// ancestry walks parent links from hash back to the root using get.
func ancestry(ctx context.Context, get func(context.Context, string) (*Node, error), hash string) ([]*Node, error) {
	var path []*Node
	current := hash
	for {
		node, err := get(ctx, current)
		if err != nil {
			return nil, err
		}
		path = append(path, node)

		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}

func reversed(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}
