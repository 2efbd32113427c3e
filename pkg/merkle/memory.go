package merkle

import (
	"context"
	"errors"
	"sync"
)

// MemoryStorer keeps nodes in process memory. Nothing survives a restart.
type MemoryStorer struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	order    []string
	children map[string]int
}

var _ Storer = (*MemoryStorer)(nil)

// NewMemoryStorer returns an empty MemoryStorer.
func NewMemoryStorer() *MemoryStorer {
	return &MemoryStorer{
		nodes:    make(map[string]*Node),
		children: make(map[string]int),
	}
}

func (s *MemoryStorer) Put(_ context.Context, node *Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[node.Hash]; ok {
		return false, nil
	}

	s.nodes[node.Hash] = node
	s.order = append(s.order, node.Hash)
	if node.ParentHash != nil {
		s.children[*node.ParentHash]++
	}
	return true, nil
}

func (s *MemoryStorer) Get(_ context.Context, hash string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	return node, nil
}

func (s *MemoryStorer) List(_ context.Context) ([]*Node, error) {
	return s.filter(func(*Node) bool { return true }), nil
}

func (s *MemoryStorer) Roots(_ context.Context) ([]*Node, error) {
	return s.filter(func(n *Node) bool { return n.ParentHash == nil }), nil
}

func (s *MemoryStorer) Leaves(_ context.Context) ([]*Node, error) {
	return s.filter(func(n *Node) bool { return s.children[n.Hash] == 0 }), nil
}

func (s *MemoryStorer) Ancestry(_ context.Context, hash string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var path []*Node
	for current := hash; ; {
		node, ok := s.nodes[current]
		if !ok {
			return nil, ErrNotFound{Hash: current}
		}
		path = append(path, node)
		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}

func (s *MemoryStorer) Close() error {
	return nil
}

// filter returns matching nodes in insertion order.
func (s *MemoryStorer) filter(match func(*Node) bool) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, len(s.order))
	for _, hash := range s.order {
		if n := s.nodes[hash]; match(n) {
			out = append(out, n)
		}
	}
	return out
}
