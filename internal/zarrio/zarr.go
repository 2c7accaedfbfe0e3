package zarrio

import "strings"

// Path is a normalized, slash-separated logical key into a Store.
type Path []string

// NewPath normalizes a POSIX-style path string into a Path: backslashes
// become forward slashes, leading/trailing slashes are stripped, and runs
// of slashes collapse to one, per the Zarr v2 key-normalization rule.
func NewPath(posix string) Path {
	posix = strings.ReplaceAll(posix, "\\", "/")
	parts := strings.Split(posix, "/")

	out := make(Path, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

func (p Path) Join(elems ...string) Path {
	joined := make(Path, len(p), len(p)+len(elems))
	copy(joined, p)
	return append(joined, elems...)
}
