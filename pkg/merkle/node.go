// Package merkle is a content-addressed DAG of flow exchanges. Identical
// prompts sent to the same flow share a root node; each distinct reply
// branches from it.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Bucket is the hashable content of a node.
type Bucket struct {
	Type        string `json:"type"` // "message"
	Role        string `json:"role"` // "user" or "bot"
	Text        string `json:"text"`
	FlowID      string `json:"flow_id,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Bucket Bucket `json:"bucket"`
}

// NewNode creates a new node with the computed hash for the provided bucket
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		n.ParentHash = &parent.Hash
	}

	n.Hash = n.computeHash()
	return n
}

type hashInput struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

func (n *Node) computeHash() string {
	i := hashInput{Bucket: n.Bucket}
	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Struct fields marshal in declaration order, which keeps the encoding
	// deterministic.
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
