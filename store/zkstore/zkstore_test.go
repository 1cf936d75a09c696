package zkstore

import (
	"errors"
	"testing"

	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"

	"github.com/zktools/zktree"
)

func TestMapErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   error
		want error
	}{
		{nil, nil},
		{zk.ErrNoNode, zktree.ErrNoNode},
		{zk.ErrNodeExists, zktree.ErrNodeExists},
		{zk.ErrNotEmpty, zktree.ErrNotEmpty},
		{zk.ErrBadVersion, zktree.ErrBadVersion},
		{zk.ErrNoChildrenForEphemerals, zktree.ErrNoChildrenForEphemerals},
		{zk.ErrInvalidPath, zktree.ErrInvalidPath},
		{zk.ErrConnectionClosed, zktree.ErrConnectionClosed},
		{zk.ErrClosing, zktree.ErrConnectionClosed},
	}
	for _, tt := range tests {
		got := mapErr(tt.in)
		if tt.want == nil {
			assert.NoError(t, got)
			continue
		}
		assert.ErrorIs(t, got, tt.want, "mapping of %v", tt.in)
	}

	// Anything without a sentinel equivalent passes through unchanged.
	wire := errors.New("ensemble unreachable")
	assert.Same(t, wire, mapErr(wire))
}

func TestModeFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode zktree.CreateMode
		want int32
	}{
		{zktree.ModePersistent, 0},
		{zktree.ModePersistentSequential, zk.FlagSequence},
		{zktree.ModeEphemeral, zk.FlagEphemeral},
		{zktree.ModeEphemeralSequential, zk.FlagEphemeral | zk.FlagSequence},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, modeFlags(tt.mode), "flags for %s", tt.mode)
	}
}

func TestToZKACL(t *testing.T) {
	t.Parallel()

	acl := []zktree.ACL{{Perms: zktree.PermRead | zktree.PermWrite, Scheme: "digest", ID: "svc:hash"}}
	assert.Equal(t, []zk.ACL{{Perms: acl[0].Perms, Scheme: "digest", ID: "svc:hash"}}, toZKACL(acl))

	// A nil ACL means the caller has no opinion; fall back to fully open.
	assert.Equal(t, zk.WorldACL(zk.PermAll), toZKACL(nil))
}
