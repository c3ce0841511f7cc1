package hexbuild

import (
	"fmt"
	"strings"
)

// Path is a validated, slash-separated relative path used throughout a
// Hexfile: as a rule input, a rule output, or a cache-internal location.
// Paths never start with a slash and never contain a ".." component.
type Path struct {
	s string
}

// NewPath validates and wraps a raw path string.
func NewPath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(raw, "/") {
		return Path{}, fmt.Errorf("path %q starts with a slash", raw)
	}
	for _, part := range strings.Split(raw, "/") {
		switch part {
		case "":
			return Path{}, fmt.Errorf("path %q has an empty component", raw)
		case ".":
			return Path{}, fmt.Errorf("path %q contains a `.` component", raw)
		case "..":
			return Path{}, fmt.Errorf("path %q contains a `..` component", raw)
		}
	}
	return Path{s: raw}, nil
}

// MustPath wraps NewPath for callers that already know the path is valid,
// such as paths built internally from cache-layout constants.
func MustPath(raw string) Path {
	p, err := NewPath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the raw path text.
func (p Path) String() string {
	return p.s
}

// IsOutput reports whether the path lies under the `out/` tree, the
// convention a Hexfile uses to distinguish build outputs from source inputs.
func (p Path) IsOutput() bool {
	return strings.HasPrefix(p.s, "out/")
}

// Child appends a path component, producing e.g. Path("out/cache").Child("x") == Path("out/cache/x").
func (p Path) Child(name string) Path {
	return Path{s: p.s + "/" + name}
}

// Less orders two paths lexically, used to keep maps/slices of Path
// deterministic for hashing and test output.
func (p Path) Less(other Path) bool {
	return p.s < other.s
}
