package zktree

import (
	"fmt"
	"strings"
)

// PathSeparator separates the segments of a node path.
const PathSeparator = "/"

const pathSeparatorChar = '/'

// sequentialSuffixDigits is the width of the counter the store appends to
// sequential node names.
const sequentialSuffixDigits = 10

// ValidatePath fails with ErrInvalidPath unless path is a canonical node
// path: non-empty, starting with the separator, with no empty, "." or ".."
// segments, no control characters, and no trailing separator except for the
// root path itself.
func ValidatePath(path string) error {
	return validatePath(path)
}

// ValidatePathSequential is ValidatePath for a path that is about to receive
// a sequential suffix, which additionally permits a single trailing
// separator.
func ValidatePathSequential(path string) error {
	// The suffix appended by the store makes any trailing separator an
	// interior one, so validate with a stand-in final character.
	return validatePath(path + "1")
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	if path[0] != pathSeparatorChar {
		return fmt.Errorf("%w: %q must start with %q", ErrInvalidPath, path, PathSeparator)
	}
	if len(path) == 1 {
		return nil
	}
	if path[len(path)-1] == pathSeparatorChar {
		return fmt.Errorf("%w: %q must not end with %q", ErrInvalidPath, path, PathSeparator)
	}

	runes := []rune(path)
	last := rune(pathSeparatorChar)
	for i := 1; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == 0:
			return fmt.Errorf("%w: %q has a null character at %d", ErrInvalidPath, path, i)
		case c == pathSeparatorChar && last == pathSeparatorChar:
			return fmt.Errorf("%w: %q has an empty segment at %d", ErrInvalidPath, path, i)
		case c == '.' && last == '.':
			if runes[i-2] == pathSeparatorChar && (i+1 == len(runes) || runes[i+1] == pathSeparatorChar) {
				return fmt.Errorf("%w: %q has a relative segment at %d", ErrInvalidPath, path, i)
			}
		case c == '.' && last == pathSeparatorChar:
			if i+1 == len(runes) || runes[i+1] == pathSeparatorChar {
				return fmt.Errorf("%w: %q has a relative segment at %d", ErrInvalidPath, path, i)
			}
		case c <= 0x001f || (c >= 0x007f && c <= 0x009f) || (c >= 0xd800 && c <= 0xf8ff) || c >= 0xfff0:
			return fmt.Errorf("%w: %q has an invalid character at %d", ErrInvalidPath, path, i)
		}
		last = c
	}
	return nil
}

// LeafName returns the final segment of path, e.g. "three" for
// "/one/two/three". The root path has an empty leaf name.
func LeafName(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	i := strings.LastIndexByte(path, pathSeparatorChar)
	if i < 0 {
		return path, nil
	}
	if i+1 >= len(path) {
		return "", nil
	}
	return path[i+1:], nil
}

// PathAndLeaf is a path split into its parent path and leaf name. Rejoining
// Parent and Leaf with JoinPath reproduces the original path, except for the
// root path, whose parent is itself and whose leaf is empty.
type PathAndLeaf struct {
	Parent string
	Leaf   string
}

// SplitParentAndLeaf splits path into its parent path and leaf name, e.g.
// {"/one/two", "three"} for "/one/two/three". The root path splits into
// {"/", ""}.
func SplitParentAndLeaf(path string) (PathAndLeaf, error) {
	if err := validatePath(path); err != nil {
		return PathAndLeaf{}, err
	}
	i := strings.LastIndexByte(path, pathSeparatorChar)
	if i < 0 {
		return PathAndLeaf{Parent: path, Leaf: ""}, nil
	}
	if i+1 >= len(path) {
		return PathAndLeaf{Parent: PathSeparator, Leaf: ""}, nil
	}
	parent := PathSeparator
	if i > 0 {
		parent = path[:i]
	}
	return PathAndLeaf{Parent: parent, Leaf: path[i+1:]}, nil
}

// SplitPath returns the individual segments of path, without separators.
// The root path yields no segments.
func SplitPath(path string) ([]string, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	var parts []string
	for _, part := range strings.Split(path, PathSeparator) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

// JoinPath composes a canonical path from a parent and any number of child
// segments. Leading and trailing separators on every component are
// normalized so that exactly one separator appears between adjacent
// non-empty pieces; an all-empty input collapses to the root path.
func JoinPath(parent string, children ...string) string {
	var b strings.Builder
	b.Grow(len(parent) + 2)

	if len(children) == 0 {
		joinPath(&b, parent, "")
		return b.String()
	}
	joinPath(&b, parent, children[0])
	for _, child := range children[1:] {
		joinPath(&b, "", child)
	}
	return b.String()
}

func joinPath(b *strings.Builder, parent, child string) {
	// Parent piece, without its trailing separator.
	if parent != "" {
		if parent[0] != pathSeparatorChar {
			b.WriteByte(pathSeparatorChar)
		}
		if parent[len(parent)-1] == pathSeparatorChar {
			b.WriteString(parent[:len(parent)-1])
		} else {
			b.WriteString(parent)
		}
	}

	if child == "" || child == PathSeparator {
		if b.Len() == 0 {
			b.WriteByte(pathSeparatorChar)
		}
		return
	}

	b.WriteByte(pathSeparatorChar)

	start := 0
	if child[0] == pathSeparatorChar {
		start = 1
	}
	end := len(child)
	if child[end-1] == pathSeparatorChar {
		end--
	}
	b.WriteString(child[start:end])
}

// ExtractSequentialSuffix returns the fixed-width counter at the end of a
// path created with a sequential mode: the last ten characters, or the whole
// string if it is shorter. No validation is performed; the caller is
// responsible for only passing paths that were produced by a sequential
// create.
func ExtractSequentialSuffix(path string) string {
	if len(path) > sequentialSuffixDigits {
		return path[len(path)-sequentialSuffixDigits:]
	}
	return path
}
