// Package memstore is an in-memory Store with ZooKeeper-style semantics:
// creates require an existing, non-ephemeral parent; deletes require a
// childless node and a matching version; sequential modes append a ten-digit
// per-parent counter. It backs tests and local experimentation; a single
// lock serializes mutations the way a single-leader ensemble would.
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zktools/zktree"
)

type node struct {
	data     []byte
	acl      []zktree.ACL
	mode     zktree.CreateMode
	version  int32
	nextSeq  int64
	children map[string]*node
}

func newNode(data []byte, acl []zktree.ACL, mode zktree.CreateMode) *node {
	return &node{
		data:     append([]byte(nil), data...),
		acl:      acl,
		mode:     mode,
		children: make(map[string]*node),
	}
}

// Store is an in-memory implementation of zktree.Store. The zero value is
// not usable; construct with New. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	root       *node
	containers bool
}

// Option configures a Store.
type Option func(*Store)

// WithoutContainerSupport makes the store report that container nodes are
// unsupported, like an ensemble running a pre-container server version.
func WithoutContainerSupport() Option {
	return func(s *Store) { s.containers = false }
}

// New returns an empty store containing only the root node.
func New(opts ...Option) *Store {
	s := &Store{
		root:       newNode(nil, zktree.OpenACLUnsafe, zktree.ModePersistent),
		containers: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportsContainers implements zktree.ContainerCapable.
func (s *Store) SupportsContainers(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.containers, nil
}

// Exists implements zktree.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := zktree.ValidatePath(path); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(path) != nil, nil
}

// Create implements zktree.Store.
func (s *Store) Create(ctx context.Context, path string, data []byte, acl []zktree.ACL, mode zktree.CreateMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if mode.IsSequential() {
		if err := zktree.ValidatePathSequential(path); err != nil {
			return "", err
		}
	} else if err := zktree.ValidatePath(path); err != nil {
		return "", err
	}
	if path == zktree.PathSeparator {
		return "", fmt.Errorf("create %s: %w", path, zktree.ErrNodeExists)
	}

	// Split by hand rather than with SplitParentAndLeaf: a sequential
	// create may carry a trailing separator, leaving an empty leaf that
	// the counter alone will name.
	i := strings.LastIndexByte(path, '/')
	parentPath := zktree.PathSeparator
	if i > 0 {
		parentPath = path[:i]
	}
	leaf := path[i+1:]

	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.find(parentPath)
	if parent == nil {
		return "", fmt.Errorf("create %s: parent: %w", path, zktree.ErrNoNode)
	}
	if parent.mode.IsEphemeral() {
		return "", fmt.Errorf("create %s: %w", path, zktree.ErrNoChildrenForEphemerals)
	}
	if mode.IsSequential() {
		leaf = fmt.Sprintf("%s%010d", leaf, parent.nextSeq)
		parent.nextSeq++
	}
	if _, ok := parent.children[leaf]; ok {
		return "", fmt.Errorf("create %s: %w", path, zktree.ErrNodeExists)
	}
	if acl == nil {
		acl = zktree.OpenACLUnsafe
	}
	parent.children[leaf] = newNode(data, acl, mode)
	return zktree.JoinPath(parentPath, leaf), nil
}

// Delete implements zktree.Store.
func (s *Store) Delete(ctx context.Context, path string, version int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := zktree.ValidatePath(path); err != nil {
		return err
	}
	if path == zktree.PathSeparator {
		return fmt.Errorf("delete %s: the root node cannot be deleted: %w", path, zktree.ErrInvalidPath)
	}

	pl, err := zktree.SplitParentAndLeaf(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.find(pl.Parent)
	if parent == nil {
		return fmt.Errorf("delete %s: %w", path, zktree.ErrNoNode)
	}
	n, ok := parent.children[pl.Leaf]
	if !ok {
		return fmt.Errorf("delete %s: %w", path, zktree.ErrNoNode)
	}
	if len(n.children) > 0 {
		return fmt.Errorf("delete %s: %w", path, zktree.ErrNotEmpty)
	}
	if version != zktree.AnyVersion && version != n.version {
		return fmt.Errorf("delete %s: want version %d, have %d: %w", path, version, n.version, zktree.ErrBadVersion)
	}
	delete(parent.children, pl.Leaf)
	return nil
}

// Children implements zktree.Store. Names are returned in map order, which
// is deliberately unordered.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := zktree.ValidatePath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.find(path)
	if n == nil {
		return nil, fmt.Errorf("children %s: %w", path, zktree.ErrNoNode)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	return names, nil
}

// Info describes a node for assertions and inspection.
type Info struct {
	Data    []byte
	ACL     []zktree.ACL
	Mode    zktree.CreateMode
	Version int32
}

// NodeInfo returns a snapshot of the node at path, if present.
func (s *Store) NodeInfo(path string) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.find(path)
	if n == nil {
		return Info{}, false
	}
	return Info{
		Data:    append([]byte(nil), n.data...),
		ACL:     n.acl,
		Mode:    n.mode,
		Version: n.version,
	}, true
}

// Reap removes container nodes that have become empty, the way the backing
// service's container manager would in the background, and returns how many
// nodes were removed. Subtrees are reaped bottom-up, so a container whose
// only children were empty containers is removed in the same pass.
func (s *Store) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reap(s.root)
}

func reap(n *node) int {
	removed := 0
	for name, child := range n.children {
		removed += reap(child)
		if child.mode.IsContainer() && len(child.children) == 0 {
			delete(n.children, name)
			removed++
		}
	}
	return removed
}

// find walks the tree to the node at path. Caller holds s.mu.
func (s *Store) find(path string) *node {
	n := s.root
	if path == zktree.PathSeparator {
		return n
	}
	for _, part := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		child, ok := n.children[part]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}
