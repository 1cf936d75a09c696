// Package zkstore adapts a go-zookeeper connection to the zktree.Store
// contract, mapping wire errors onto the zktree sentinels and create modes
// onto the client's flag constants.
package zkstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zktools/zktree"
	"github.com/zktools/zktree/internal/util"
)

// Store implements zktree.Store and zktree.ContainerCapable over a live
// ZooKeeper connection. Safe for concurrent use; the underlying connection
// multiplexes requests.
type Store struct {
	conn   *zk.Conn
	logger zerolog.Logger

	probeOnce  sync.Once
	containers bool
}

// New wraps an existing connection. The caller keeps ownership of conn.
func New(conn *zk.Conn) *Store {
	return &Store{
		conn:   conn,
		logger: util.GetLogger("zkstore"),
	}
}

// Connect dials the given ensemble and returns a Store owning the
// connection. Close releases it. The zk client's own log lines are routed
// through the zerolog bridge at debug level.
func Connect(servers []string, sessionTimeout time.Duration) (*Store, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout,
		zk.WithLogger(util.NewLogLogger("zk", util.DebugLevel)),
	)
	if err != nil {
		return nil, fmt.Errorf("zkstore: connect %v: %w", servers, err)
	}
	return New(conn), nil
}

// Close shuts down the underlying connection.
func (s *Store) Close() {
	s.conn.Close()
}

// Conn exposes the underlying connection for callers that need primitives
// beyond the Store contract.
func (s *Store) Conn() *zk.Conn {
	return s.conn
}

// Exists implements zktree.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, _, err := s.conn.Exists(path)
	return ok, mapErr(err)
}

// Create implements zktree.Store.
func (s *Store) Create(ctx context.Context, path string, data []byte, acl []zktree.ACL, mode zktree.CreateMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	zacl := toZKACL(acl)
	if mode.IsContainer() {
		if mode.IsSequential() {
			return "", fmt.Errorf("zkstore: create %s: container nodes cannot be sequential", path)
		}
		created, err := s.createContainer(path, data, zacl)
		return created, mapErr(err)
	}
	created, err := s.conn.Create(path, data, modeFlags(mode), zacl)
	return created, mapErr(err)
}

// Delete implements zktree.Store.
func (s *Store) Delete(ctx context.Context, path string, version int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(s.conn.Delete(path, version))
}

// Children implements zktree.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children, _, err := s.conn.Children(path)
	if err != nil {
		return nil, mapErr(err)
	}
	return children, nil
}

// SupportsContainers implements zktree.ContainerCapable by creating and
// removing a uniquely named container node. Probed at most once; the answer
// is cached for the lifetime of the Store.
func (s *Store) SupportsContainers(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.probeOnce.Do(func() {
		probe := "/zktree-container-probe-" + uuid.NewString()
		_, err := s.createContainer(probe, nil, zk.WorldACL(zk.PermAll))
		switch {
		case err == nil:
			// The server would reap the empty probe node on its own
			// schedule; remove it now rather than leaving it around.
			if derr := s.conn.Delete(probe, -1); derr != nil && !errors.Is(derr, zk.ErrNoNode) {
				s.logger.Debug().Err(derr).Str("path", probe).Msg("could not remove container probe node")
			}
			s.containers = true
		case errors.Is(err, zk.ErrNodeExists):
			s.containers = true
		default:
			s.logger.Warn().Err(err).Msg("server rejected container create; persistent nodes will be used instead")
		}
	})
	return s.containers, nil
}

// createContainer issues a container create, retrying with FlagTTL for
// client versions that gate container requests behind it.
func (s *Store) createContainer(path string, data []byte, acl []zk.ACL) (string, error) {
	created, err := s.conn.CreateContainer(path, data, 0, acl)
	if errors.Is(err, zk.ErrInvalidFlags) {
		created, err = s.conn.CreateContainer(path, data, zk.FlagTTL, acl)
	}
	return created, err
}

func modeFlags(mode zktree.CreateMode) int32 {
	var flags int32
	if mode.IsEphemeral() {
		flags |= zk.FlagEphemeral
	}
	if mode.IsSequential() {
		flags |= zk.FlagSequence
	}
	return flags
}

func toZKACL(acl []zktree.ACL) []zk.ACL {
	if acl == nil {
		return zk.WorldACL(zk.PermAll)
	}
	out := make([]zk.ACL, len(acl))
	for i, a := range acl {
		out[i] = zk.ACL{Perms: a.Perms, Scheme: a.Scheme, ID: a.ID}
	}
	return out
}

// mapErr translates go-zookeeper errors onto the zktree sentinels. Errors
// with no sentinel equivalent (connection loss, session expiry, auth) pass
// through unchanged for the caller to handle.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zk.ErrNoNode):
		return zktree.ErrNoNode
	case errors.Is(err, zk.ErrNodeExists):
		return zktree.ErrNodeExists
	case errors.Is(err, zk.ErrNotEmpty):
		return zktree.ErrNotEmpty
	case errors.Is(err, zk.ErrBadVersion):
		return zktree.ErrBadVersion
	case errors.Is(err, zk.ErrNoChildrenForEphemerals):
		return zktree.ErrNoChildrenForEphemerals
	case errors.Is(err, zk.ErrInvalidPath):
		return fmt.Errorf("%w: %s", zktree.ErrInvalidPath, err)
	case errors.Is(err, zk.ErrConnectionClosed), errors.Is(err, zk.ErrClosing):
		return fmt.Errorf("%w: %s", zktree.ErrConnectionClosed, err)
	default:
		return err
	}
}
