// Package pathutil resolves user supplied path strings against directory
// contexts and creates note files on demand.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/c-c-k/progirl/internal/apperr"
)

var plausiblePathRe = regexp.MustCompile(`^[\p{L}\p{N}_./-]+$`)

type resolveOptions struct {
	contextDir  string
	contextRoot string
	canonical   bool
}

// ResolveOption customises Resolve.
type ResolveOption func(*resolveOptions)

// WithContextDir sets the directory that relative paths are joined to.
func WithContextDir(dir string) ResolveOption {
	return func(o *resolveOptions) { o.contextDir = dir }
}

// WithContextRoot roots absolute-looking paths under root.
func WithContextRoot(root string) ResolveOption {
	return func(o *resolveOptions) { o.contextRoot = root }
}

// WithoutCanonicalize skips symlink resolution.
func WithoutCanonicalize() ResolveOption {
	return func(o *resolveOptions) { o.canonical = false }
}

// Expand expands a leading ~ and environment variable references, then
// cleans the result. Unknown variables are left in place.
func Expand(path string) string {
	path = os.Expand(path, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return filepath.Clean(path)
}

// Resolve turns path into an absolute path. Absolute inputs are rooted
// under the context root when one is given; relative inputs are joined to
// the context directory when one is given, else to the working directory.
func Resolve(path string, opts ...ResolveOption) string {
	o := resolveOptions{canonical: true}
	for _, opt := range opts {
		opt(&o)
	}

	p := Expand(path)
	switch {
	case filepath.IsAbs(p) && o.contextRoot != "":
		root := Expand(o.contextRoot)
		p = filepath.Join(root, strings.TrimLeft(p, string(filepath.Separator)))
	case !filepath.IsAbs(p) && o.contextDir != "":
		p = filepath.Join(Expand(o.contextDir), p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if o.canonical {
		p = RealPath(p)
	}
	return p
}

// RealPath resolves symlinks in the longest existing prefix of an
// absolute path and appends the remaining segments unchanged.
func RealPath(path string) string {
	path = filepath.Clean(path)
	var rest []string
	cur := path
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Join(parts...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// Validate returns the canonical form of path when it exists or looks like
// a plausible path. Otherwise it returns apperr.ErrNotFound.
func Validate(path string) (string, error) {
	if Exists(path) || plausiblePathRe.MatchString(path) {
		return RealPath(path), nil
	}
	return "", fmt.Errorf("pathutil: validate %q: %w", path, apperr.ErrNotFound)
}

// TouchWithParents creates an empty file at path together with any missing
// parent directories. An existing path is returned unchanged.
func TouchWithParents(path string) (string, error) {
	if Exists(path) {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("pathutil: mkdir for %s: %w: %w", path, apperr.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("pathutil: create %s: %w: %w", path, apperr.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pathutil: close %s: %w: %w", path, apperr.ErrIO, err)
	}
	return path, nil
}

// ContextDir returns the canonical parent directory of a file-backed
// buffer. With no buffer path it falls back to the working directory when
// allowCwd is set, and to "" otherwise.
func ContextDir(bufferPath string, allowCwd bool) string {
	if bufferPath != "" {
		return RealPath(filepath.Dir(Resolve(bufferPath, WithoutCanonicalize())))
	}
	if allowCwd {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return ""
}

// HasPathPrefix reports whether path equals prefix or lies below it.
func HasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
