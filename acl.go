package zktree

import "github.com/puzpuzpuz/xsync/v3"

// Node permission bits.
const (
	PermRead int32 = 1 << iota
	PermWrite
	PermCreate
	PermDelete
	PermAdmin
)

// PermAll grants every permission.
const PermAll = PermRead | PermWrite | PermCreate | PermDelete | PermAdmin

// ACL is a single access-control entry attached to a node at creation time.
type ACL struct {
	Perms  int32
	Scheme string
	ID     string
}

// WorldACL grants perms to everyone.
func WorldACL(perms int32) []ACL {
	return []ACL{{Perms: perms, Scheme: "world", ID: "anyone"}}
}

// OpenACLUnsafe is the fully-open ACL used when no provider supplies one.
var OpenACLUnsafe = WorldACL(PermAll)

// ACLProvider resolves the ACL to attach to nodes created on a caller's
// behalf. Either method may return nil to mean "not supplied"; the caller
// falls back from the per-path ACL to the provider default and finally to
// OpenACLUnsafe.
type ACLProvider interface {
	// ACLForPath returns the ACL for the node at path, or nil.
	ACLForPath(path string) []ACL

	// DefaultACL returns the provider-wide default ACL, or nil.
	DefaultACL() []ACL
}

// MappingACLProvider is an ACLProvider backed by a concurrent map of
// per-path overrides on top of a fixed default. It is safe for concurrent
// use; overrides may be added while tree operations are in flight.
type MappingACLProvider struct {
	overrides *xsync.MapOf[string, []ACL]
	def       []ACL
}

// NewMappingACLProvider returns a provider whose DefaultACL is def, which
// may be nil.
func NewMappingACLProvider(def []ACL) *MappingACLProvider {
	return &MappingACLProvider{
		overrides: xsync.NewMapOf[string, []ACL](),
		def:       def,
	}
}

// Set registers an override for the node at path.
func (p *MappingACLProvider) Set(path string, acl []ACL) {
	p.overrides.Store(path, acl)
}

// ACLForPath returns the override registered for path, or nil.
func (p *MappingACLProvider) ACLForPath(path string) []ACL {
	acl, ok := p.overrides.Load(path)
	if !ok {
		return nil
	}
	return acl
}

// DefaultACL returns the provider-wide default, or nil.
func (p *MappingACLProvider) DefaultACL() []ACL {
	return p.def
}
