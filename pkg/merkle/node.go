// Package merkle is an implementation of a Merkle DAG used to record chat
// transcripts. Each turn is a node linked to the turn before it, so identical
// histories deduplicate and divergent ones branch from their common prefix.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Content is the hashable content for the node
	Content Bucket `json:"content"`
}

// input is the canonical form that is hashed.
type input struct {
	Content Bucket `json:"content"`
	Parent  string `json:"parent,omitempty"`
}

// NewNode creates a new node with the computed hash for the provided content
func NewNode(content Bucket, parent *Node) *Node {
	n := &Node{
		Content: content,
	}

	if parent != nil {
		hash := parent.Hash
		n.ParentHash = &hash
	}

	n.Hash = n.computeHash()
	return n
}

// computeHash calculates the content-addressed hash for a node
func (n *Node) computeHash() string {
	i := &input{
		Content: n.Content,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Struct field order makes the JSON encoding deterministic
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether the node's hash matches its content and parent.
func (n *Node) Verify() bool {
	return n != nil && n.Hash == n.computeHash()
}
