package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zktools/zktree"
)

// MockStore implements zktree.Store for testing across packages
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, path string, data []byte, acl []zktree.ACL, mode zktree.CreateMode) (string, error) {
	args := m.Called(ctx, path, data, acl, mode)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, path string, version int32) error {
	args := m.Called(ctx, path, version)
	return args.Error(0)
}

func (m *MockStore) Children(ctx context.Context, path string) ([]string, error) {
	args := m.Called(ctx, path)

	// Handle nil returns
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockContainerStore adds the capability probe for container-mode tests.
type MockContainerStore struct {
	MockStore
}

func (m *MockContainerStore) SupportsContainers(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
