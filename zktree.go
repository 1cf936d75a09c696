// Package zktree provides race-tolerant recursive operations over a
// ZooKeeper-style hierarchical namespace: recursive path creation, recursive
// subtree deletion, and ordered child listing. The namespace is mutated
// concurrently by other clients, so every multi-step operation tolerates
// nodes appearing or disappearing between the read that observed them and the
// write that assumed their state.
package zktree

import "context"

// AnyVersion matches any node version in a Delete call.
const AnyVersion int32 = -1

// CreateMode selects how a node is created in the store.
type CreateMode int32

const (
	// ModePersistent nodes remain until explicitly deleted.
	ModePersistent CreateMode = iota
	// ModePersistentSequential appends a monotonically increasing
	// fixed-width suffix to the node name.
	ModePersistentSequential
	// ModeEphemeral nodes are removed when the creating session ends.
	ModeEphemeral
	// ModeEphemeralSequential combines ephemeral lifetime with a
	// sequential suffix.
	ModeEphemeralSequential
	// ModeContainer nodes are removed by the store once they have been
	// emptied of children.
	ModeContainer
	// ModeContainerSequential combines container lifetime with a
	// sequential suffix.
	ModeContainerSequential
)

// IsSequential reports whether the store assigns a sequence suffix for this mode.
func (m CreateMode) IsSequential() bool {
	return m == ModePersistentSequential || m == ModeEphemeralSequential || m == ModeContainerSequential
}

// IsEphemeral reports whether nodes of this mode are tied to a session.
func (m CreateMode) IsEphemeral() bool {
	return m == ModeEphemeral || m == ModeEphemeralSequential
}

// IsContainer reports whether nodes of this mode are reaped once empty.
func (m CreateMode) IsContainer() bool {
	return m == ModeContainer || m == ModeContainerSequential
}

func (m CreateMode) String() string {
	switch m {
	case ModePersistent:
		return "persistent"
	case ModePersistentSequential:
		return "persistent-sequential"
	case ModeEphemeral:
		return "ephemeral"
	case ModeEphemeralSequential:
		return "ephemeral-sequential"
	case ModeContainer:
		return "container"
	case ModeContainerSequential:
		return "container-sequential"
	default:
		return "unknown"
	}
}

// Store is the set of namespace primitives the tree operations are built on.
// Implementations are expected to be safe for concurrent use; they map their
// wire errors onto the sentinel errors in this package and propagate
// everything else (connectivity failures in particular) unchanged.
type Store interface {
	// Exists reports whether a node is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Create makes a new node and returns the path actually created, which
	// differs from the requested path for sequential modes. Fails with
	// ErrNoNode if the parent is missing and ErrNodeExists if the node is
	// already present.
	Create(ctx context.Context, path string, data []byte, acl []ACL, mode CreateMode) (string, error)

	// Delete removes a childless node. version is matched against the
	// node's current version unless it is AnyVersion. Fails with ErrNoNode
	// if the node is missing, ErrNotEmpty if it has children, and
	// ErrBadVersion on a version mismatch.
	Delete(ctx context.Context, path string, version int32) error

	// Children returns the names (not full paths) of the direct children
	// of path, in no particular order. Fails with ErrNoNode if the node is
	// missing.
	Children(ctx context.Context, path string) ([]string, error)
}

// ContainerCapable is implemented by stores that can report whether the
// backing service supports container-mode nodes. The Client consults it at
// most once and caches the answer for its lifetime.
type ContainerCapable interface {
	SupportsContainers(ctx context.Context) (bool, error)
}
