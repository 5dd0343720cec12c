package graph

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/jsplus/internal/transpile"
)

// Scheme is the network transport a separated module is fetched with.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeHTTP
	SchemeHTTPS
)

// Marker returns the separation marker embedded in ids for s.
func (s Scheme) Marker() string {
	switch s {
	case SchemeHTTP:
		return transpile.MarkerHTTP
	case SchemeHTTPS:
		return transpile.MarkerHTTPS
	default:
		return ""
	}
}

// Address is a parsed module id of the form <path>[/<HTTP>|/<HTTPS>/<namespace>].
type Address struct {
	Path      string
	Namespace string
	Scheme    Scheme
}

// ParseAddress splits id into its file path, separation scheme and
// namespace.
func ParseAddress(id string) Address {
	for _, scheme := range []Scheme{SchemeHTTP, SchemeHTTPS} {
		marker := strings.TrimSuffix(scheme.Marker(), "/")
		if i := strings.Index(id, marker); i >= 0 {
			return Address{
				Path:      id[:i],
				Namespace: strings.TrimPrefix(id[i+len(marker):], "/"),
				Scheme:    scheme,
			}
		}
	}

	return Address{Path: id}
}

// Separated reports whether the address carries a network marker.
func (a Address) Separated() bool {
	return a.Scheme != SchemeNone
}

// CacheKey identifies one loaded instance of a separated module: the same
// file under two namespaces is two instances.
func (a Address) CacheKey() string {
	return a.Path + a.Namespace
}

// String renders the address back into module id form.
func (a Address) String() string {
	if !a.Separated() {
		return a.Path
	}
	return a.Path + a.Scheme.Marker() + a.Namespace
}

// Resolve resolves the reference ref, as written in a module located in dir,
// to an absolute address. Markers and namespace are carried over verbatim.
func Resolve(dir, ref string) Address {
	addr := ParseAddress(ref)
	addr.Path = path.Join(dir, addr.Path)

	return addr
}

// IsNetworkURL reports whether ref is an absolute http(s) URL.
func IsNetworkURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Extensions lists the file extensions that become graph nodes. Any other
// referenced file is copied to the output directory as an asset.
var Extensions = []string{".js", ".mjs", ".json", ".css", ".svg", ".xml", ".html"}

// IsModuleExt reports whether ext is one of Extensions.
func IsModuleExt(ext string) bool {
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// NormalizeID converts a file path into the absolute, forward-slash form
// used as a module id.
func NormalizeID(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.ToSlash(p)
}
