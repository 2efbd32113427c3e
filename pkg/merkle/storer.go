package merkle

import "context"

// Storer persists and traverses nodes. Put is idempotent: content addressing
// means a node that already exists is not stored twice.
type Storer interface {
	// Put stores a node and reports whether it was new.
	Put(ctx context.Context, node *Node) (bool, error)

	// Get retrieves a node by its hash. Returns ErrNotFound if the node doesn't exist.
	Get(ctx context.Context, hash string) (*Node, error)

	// List returns all nodes in insertion order.
	List(ctx context.Context) ([]*Node, error)

	// Roots returns all nodes with no parent.
	Roots(ctx context.Context) ([]*Node, error)

	// Leaves returns all nodes with no children.
	Leaves(ctx context.Context) ([]*Node, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	// Close releases any resources.
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
