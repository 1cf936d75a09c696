package zktree

import "errors"

// Sentinel errors shared by all Store implementations. Operations in this
// package absorb some of these as expected concurrent-mutation signals; see
// the individual Client methods. Anything not listed here (connectivity or
// session failures in particular) is propagated to the caller unchanged.
var (
	// ErrInvalidPath indicates a malformed path. It is never retried.
	ErrInvalidPath = errors.New("zktree: invalid path")

	// ErrNoNode indicates the node does not exist.
	ErrNoNode = errors.New("zktree: node does not exist")

	// ErrNodeExists indicates a create collided with an existing node.
	ErrNodeExists = errors.New("zktree: node already exists")

	// ErrNotEmpty indicates a delete was attempted on a node with children.
	ErrNotEmpty = errors.New("zktree: node has children")

	// ErrBadVersion indicates a delete's expected version did not match.
	ErrBadVersion = errors.New("zktree: version conflict")

	// ErrNoChildrenForEphemerals indicates a create under an ephemeral node.
	ErrNoChildrenForEphemerals = errors.New("zktree: ephemeral nodes may not have children")

	// ErrConnectionClosed indicates the store connection is gone.
	ErrConnectionClosed = errors.New("zktree: connection closed")
)
