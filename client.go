package zktree

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zktools/zktree/internal/util"
)

// Client runs the recursive tree operations against a Store. It holds no
// state about the namespace itself; every decision is based on a fresh read
// immediately preceding it, because other clients mutate the tree
// concurrently. The only cached value is the container-capability answer,
// resolved at most once and read-only thereafter.
//
// A Client is safe for concurrent use from any number of goroutines.
type Client struct {
	store            Store
	acl              ACLProvider
	useContainers    bool
	maxDeleteRetries int
	logger           zerolog.Logger

	containerOnce sync.Once
	containerMode CreateMode
}

// Option configures a Client.
type Option func(*Client)

// WithACLProvider sets the provider consulted for the ACL of every node
// created by Mkdirs. Without one, nodes are created with OpenACLUnsafe.
func WithACLProvider(p ACLProvider) Option {
	return func(c *Client) { c.acl = p }
}

// WithContainers makes Mkdirs create container-mode nodes when the store
// supports them, so that intermediate nodes are reaped once empty. Stores
// that do not support containers fall back to persistent nodes with a
// one-time warning.
func WithContainers() Option {
	return func(c *Client) { c.useContainers = true }
}

// WithMaxDeleteRetries bounds the number of times DeleteChildren re-lists a
// node whose delete keeps failing with ErrNotEmpty because another client
// keeps creating children under it. Zero (the default) retries forever,
// which converges as soon as the concurrent creator stops.
func WithMaxDeleteRetries(n int) Option {
	return func(c *Client) { c.maxDeleteRetries = n }
}

// WithLogger replaces the Client's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a Client operating on store.
func New(store Store, opts ...Option) *Client {
	c := &Client{
		store:  store,
		logger: util.GetLogger("zktree"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mkdirs guarantees that every ancestor of path exists, and that path itself
// exists when makeLeaf is true. Nodes are created with an empty payload,
// like File.mkdirs for a namespace that does not distinguish directories
// from files.
//
// The tree is probed from the leaf toward the root and created back down, so
// a child is never created before its parent. A create that fails with
// ErrNodeExists is absorbed: another client created the node between our
// probe and our create, which is the outcome we wanted anyway.
func (c *Client) Mkdirs(ctx context.Context, path string, makeLeaf bool) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	logger := c.logger.With().Str("op", uuid.NewString()).Str("path", path).Logger()

	// Walk from the leaf toward the root until a prefix is found to exist.
	// Probing in this direction means no read access is needed on ancestors
	// that are already in place, and no create is issued against them.
	pos := len(path)
	for pos > 0 {
		exists, err := c.store.Exists(ctx, path[:pos])
		if err != nil {
			return fmt.Errorf("mkdirs %s: exists %s: %w", path, path[:pos], err)
		}
		if exists {
			break
		}
		pos = strings.LastIndexByte(path[:pos], pathSeparatorChar)
	}

	// Create everything below the deepest existing prefix, parent first.
	// The root is assumed to always exist.
	for pos < len(path) {
		i := strings.IndexByte(path[pos+1:], pathSeparatorChar)
		if i >= 0 {
			pos += 1 + i
		} else {
			if !makeLeaf {
				break
			}
			pos = len(path)
		}
		sub := path[:pos]

		_, err := c.store.Create(ctx, sub, nil, c.aclFor(sub), c.createMode(ctx))
		switch {
		case err == nil:
			logger.Debug().Str("node", sub).Msg("created node")
		case errors.Is(err, ErrNodeExists):
			// Another client created it since we probed.
			logger.Debug().Str("node", sub).Msg("node created concurrently elsewhere")
		default:
			return fmt.Errorf("mkdirs %s: create %s: %w", path, sub, err)
		}
	}
	return nil
}

// DeleteChildren guarantees that no descendant of path remains, and removes
// path itself when deleteSelf is true. A node that is already gone, at any
// level, counts as removed: another client deleted it since we listed it.
//
// If the final delete of a node fails with ErrNotEmpty, a new child was
// created under it after we emptied it, and the node is listed and emptied
// again. The retry loop is unbounded by default and converges once
// concurrent creators stop; WithMaxDeleteRetries bounds it, surfacing
// ErrNotEmpty when the bound is hit.
func (c *Client) DeleteChildren(ctx context.Context, path string, deleteSelf bool) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	logger := c.logger.With().Str("op", uuid.NewString()).Str("path", path).Logger()
	return c.deleteTree(ctx, logger, path, deleteSelf)
}

func (c *Client) deleteTree(ctx context.Context, logger zerolog.Logger, path string, deleteSelf bool) error {
	for attempt := 1; ; attempt++ {
		children, err := c.store.Children(ctx, path)
		if errors.Is(err, ErrNoNode) {
			// Already gone; nothing left to do.
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete children %s: %w", path, err)
		}

		for _, child := range children {
			if err := c.deleteTree(ctx, logger, JoinPath(path, child), true); err != nil {
				return err
			}
		}
		if !deleteSelf {
			return nil
		}

		err = c.store.Delete(ctx, path, AnyVersion)
		switch {
		case err == nil, errors.Is(err, ErrNoNode):
			return nil
		case errors.Is(err, ErrNotEmpty):
			// A new child appeared since we listed; empty the node again.
			if c.maxDeleteRetries > 0 && attempt >= c.maxDeleteRetries {
				return fmt.Errorf("delete %s: children kept appearing for %d attempts: %w", path, attempt, ErrNotEmpty)
			}
			logger.Debug().Str("node", path).Int("attempt", attempt).Msg("node gained children during delete, retrying")
		default:
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
}

// SortedChildren lists the direct children of path in ascending
// lexicographic order of their names. Sequence suffixes are fixed-width and
// zero-padded, so sequential siblings sort in creation order. Fails with
// ErrNoNode if the node does not exist; no retry is attempted.
func (c *Client) SortedChildren(ctx context.Context, path string) ([]string, error) {
	children, err := c.store.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	slices.Sort(children)
	return children, nil
}

// aclFor resolves the ACL for a node about to be created: the provider's
// per-path ACL, then the provider default, then OpenACLUnsafe.
func (c *Client) aclFor(path string) []ACL {
	if c.acl != nil {
		if acl := c.acl.ACLForPath(path); acl != nil {
			return acl
		}
		if acl := c.acl.DefaultACL(); acl != nil {
			return acl
		}
	}
	return OpenACLUnsafe
}

// createMode returns the mode Mkdirs creates nodes with. The container
// capability of the store is resolved on first use and cached for the
// lifetime of the Client.
func (c *Client) createMode(ctx context.Context) CreateMode {
	if !c.useContainers {
		return ModePersistent
	}
	c.containerOnce.Do(func() {
		c.containerMode = ModePersistent
		capable, ok := c.store.(ContainerCapable)
		if !ok {
			c.logger.Warn().Msg("store cannot report container support; using persistent nodes instead")
			return
		}
		supported, err := capable.SupportsContainers(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("container capability probe failed; using persistent nodes instead")
			return
		}
		if !supported {
			c.logger.Warn().Msg("store does not support container nodes; using persistent nodes instead")
			return
		}
		c.containerMode = ModeContainer
	})
	return c.containerMode
}
