package zktree_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zktools/zktree"
	"github.com/zktools/zktree/internal/mocks"
	"github.com/zktools/zktree/store/memstore"
)

func TestMkdirs_CreatesMissingChain(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	client := zktree.New(store)

	require.NoError(t, client.Mkdirs(context.Background(), "/a/b/c", true))

	for _, path := range []string{"/a", "/a/b", "/a/b/c"} {
		info, ok := store.NodeInfo(path)
		require.True(t, ok, "%s must exist", path)
		assert.Empty(t, info.Data, "%s must have an empty payload", path)
		assert.Equal(t, zktree.ModePersistent, info.Mode)
	}
}

func TestMkdirs_ExistingPrefixLeftAlone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	_, err := store.Create(ctx, "/a", []byte("kept"), nil, zktree.ModePersistent)
	require.NoError(t, err)

	client := zktree.New(store)
	require.NoError(t, client.Mkdirs(ctx, "/a/b", true))

	info, ok := store.NodeInfo("/a")
	require.True(t, ok)
	assert.Equal(t, []byte("kept"), info.Data, "existing node must not be recreated")
	_, ok = store.NodeInfo("/a/b")
	assert.True(t, ok)
}

func TestMkdirs_ParentsOnly(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	client := zktree.New(store)

	require.NoError(t, client.Mkdirs(context.Background(), "/a/b", false))

	_, ok := store.NodeInfo("/a")
	assert.True(t, ok, "/a must be created")
	_, ok = store.NodeInfo("/a/b")
	assert.False(t, ok, "/a/b must not be created")
}

func TestMkdirs_Root(t *testing.T) {
	t.Parallel()

	client := zktree.New(memstore.New())
	assert.NoError(t, client.Mkdirs(context.Background(), "/", true))
}

func TestMkdirs_InvalidPath(t *testing.T) {
	t.Parallel()

	client := zktree.New(memstore.New())
	for _, path := range []string{"", "a/b", "/a//b", "/a/"} {
		assert.ErrorIs(t, client.Mkdirs(context.Background(), path, true), zktree.ErrInvalidPath, "path %q", path)
	}
}

// Two independent callers racing the same path must both succeed and leave
// exactly the target chain behind.
func TestMkdirs_ConcurrentCallers(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = zktree.New(store).Mkdirs(ctx, "/a/b/c", true)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	children, err := store.Children(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, children)
	children, err = store.Children(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, children)
	children, err = store.Children(ctx, "/a/b")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, children)
}

// A create that loses the race to another client is absorbed, not surfaced.
func TestMkdirs_AbsorbsNodeExists(t *testing.T) {
	t.Parallel()

	store := &mocks.MockStore{}
	store.On("Exists", mock.Anything, "/a").Return(false, nil)
	store.On("Create", mock.Anything, "/a", mock.Anything, mock.Anything, mock.Anything).
		Return("", zktree.ErrNodeExists)

	client := zktree.New(store)
	assert.NoError(t, client.Mkdirs(context.Background(), "/a", true))
	store.AssertExpectations(t)
}

func TestMkdirs_PropagatesStoreFailure(t *testing.T) {
	t.Parallel()

	wireErr := errors.New("connection reset")
	store := &mocks.MockStore{}
	store.On("Exists", mock.Anything, "/a/b").Return(false, wireErr)

	client := zktree.New(store)
	err := client.Mkdirs(context.Background(), "/a/b", true)
	assert.ErrorIs(t, err, wireErr)
}

func TestMkdirs_Containers(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	client := zktree.New(store, zktree.WithContainers())

	require.NoError(t, client.Mkdirs(context.Background(), "/a/b", true))

	info, ok := store.NodeInfo("/a")
	require.True(t, ok)
	assert.Equal(t, zktree.ModeContainer, info.Mode)

	// Emptied containers disappear once the store reaps them.
	require.NoError(t, client.DeleteChildren(context.Background(), "/a/b", true))
	assert.Equal(t, 1, store.Reap())
	_, ok = store.NodeInfo("/a")
	assert.False(t, ok)
}

func TestMkdirs_ContainerFallback(t *testing.T) {
	t.Parallel()

	store := memstore.New(memstore.WithoutContainerSupport())
	client := zktree.New(store, zktree.WithContainers())

	require.NoError(t, client.Mkdirs(context.Background(), "/a", true))

	info, ok := store.NodeInfo("/a")
	require.True(t, ok)
	assert.Equal(t, zktree.ModePersistent, info.Mode, "must fall back to persistent nodes")
}

// The capability answer is resolved once and reused across operations.
func TestMkdirs_CapabilityProbedOnce(t *testing.T) {
	t.Parallel()

	store := &mocks.MockContainerStore{}
	store.On("SupportsContainers", mock.Anything).Return(true, nil).Once()
	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	store.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, zktree.ModeContainer).
		Return("", nil)

	client := zktree.New(store, zktree.WithContainers())
	ctx := context.Background()
	require.NoError(t, client.Mkdirs(ctx, "/a", true))
	require.NoError(t, client.Mkdirs(ctx, "/b", true))
	store.AssertExpectations(t)
}

func TestMkdirs_ACLProvider(t *testing.T) {
	t.Parallel()

	digest := []zktree.ACL{{Perms: zktree.PermRead | zktree.PermWrite, Scheme: "digest", ID: "svc:hash"}}
	readOnly := []zktree.ACL{{Perms: zktree.PermRead, Scheme: "world", ID: "anyone"}}

	provider := zktree.NewMappingACLProvider(readOnly)
	provider.Set("/a/b", digest)

	store := memstore.New()
	client := zktree.New(store, zktree.WithACLProvider(provider))
	require.NoError(t, client.Mkdirs(context.Background(), "/a/b", true))

	info, ok := store.NodeInfo("/a")
	require.True(t, ok)
	assert.Equal(t, readOnly, info.ACL, "no override for /a, provider default applies")

	info, ok = store.NodeInfo("/a/b")
	require.True(t, ok)
	assert.Equal(t, digest, info.ACL, "per-path override applies")
}

func TestDeleteChildren_RemovesSubtree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	client := zktree.New(store)
	require.NoError(t, client.Mkdirs(ctx, "/a/x", true))
	require.NoError(t, client.Mkdirs(ctx, "/a/y/z", true))

	require.NoError(t, client.DeleteChildren(ctx, "/a", true))

	for _, path := range []string{"/a", "/a/x", "/a/y", "/a/y/z"} {
		_, ok := store.NodeInfo(path)
		assert.False(t, ok, "%s must be gone", path)
	}
}

func TestDeleteChildren_KeepSelf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	client := zktree.New(store)
	require.NoError(t, client.Mkdirs(ctx, "/a/x", true))

	require.NoError(t, client.DeleteChildren(ctx, "/a", false))

	_, ok := store.NodeInfo("/a")
	assert.True(t, ok, "/a itself must survive")
	_, ok = store.NodeInfo("/a/x")
	assert.False(t, ok)
}

func TestDeleteChildren_MissingPathIsVacuous(t *testing.T) {
	t.Parallel()

	client := zktree.New(memstore.New())
	assert.NoError(t, client.DeleteChildren(context.Background(), "/never/existed", true))
}

func TestDeleteChildren_InvalidPath(t *testing.T) {
	t.Parallel()

	client := zktree.New(memstore.New())
	assert.ErrorIs(t, client.DeleteChildren(context.Background(), "bad", true), zktree.ErrInvalidPath)
}

// recreatingStore races DeleteChildren by inserting a fresh child under the
// target a bounded number of times, right before each delete attempt.
type recreatingStore struct {
	*memstore.Store
	target    string
	remaining atomic.Int32
}

func (s *recreatingStore) Delete(ctx context.Context, path string, version int32) error {
	if path == s.target && s.remaining.Add(-1) >= 0 {
		_, err := s.Store.Create(ctx, s.target+"/intruder", nil, nil, zktree.ModePersistentSequential)
		if err != nil {
			return err
		}
	}
	return s.Store.Delete(ctx, path, version)
}

func TestDeleteChildren_ConvergesAgainstTransientCreator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &recreatingStore{Store: memstore.New(), target: "/a"}
	store.remaining.Store(5)

	client := zktree.New(store)
	require.NoError(t, client.Mkdirs(ctx, "/a/x", true))
	require.NoError(t, client.Mkdirs(ctx, "/a/y/z", true))

	require.NoError(t, client.DeleteChildren(ctx, "/a", true))

	_, ok := store.NodeInfo("/a")
	assert.False(t, ok, "/a must be fully absent once the creator stops")
}

func TestDeleteChildren_RetryBound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &recreatingStore{Store: memstore.New(), target: "/a"}
	store.remaining.Store(1 << 20) // never stops within the bound

	client := zktree.New(store, zktree.WithMaxDeleteRetries(3))
	require.NoError(t, client.Mkdirs(ctx, "/a", true))

	err := client.DeleteChildren(ctx, "/a", true)
	assert.ErrorIs(t, err, zktree.ErrNotEmpty)
}

func TestSortedChildren(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	client := zktree.New(store)
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, client.Mkdirs(ctx, "/parent/"+name, true))
	}

	children, err := client.SortedChildren(ctx, "/parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, children)
}

func TestSortedChildren_MissingNode(t *testing.T) {
	t.Parallel()

	client := zktree.New(memstore.New())
	_, err := client.SortedChildren(context.Background(), "/nope")
	assert.ErrorIs(t, err, zktree.ErrNoNode)
}

func TestSortedChildren_SequentialSiblings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	client := zktree.New(store)
	require.NoError(t, client.Mkdirs(ctx, "/locks", true))

	var created []string
	for n := 0; n < 3; n++ {
		path, err := store.Create(ctx, "/locks/lock-", nil, nil, zktree.ModeEphemeralSequential)
		require.NoError(t, err)
		created = append(created, path)
	}

	children, err := client.SortedChildren(ctx, "/locks")
	require.NoError(t, err)
	require.Len(t, children, 3)
	// Fixed-width suffixes sort in creation order.
	for i, child := range children {
		assert.Equal(t, created[i], zktree.JoinPath("/locks", child))
	}
}
