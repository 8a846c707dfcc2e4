package registry

import (
	"regexp"
	"strings"
)

var (
	nameComponent = regexp.MustCompile(`^[a-z0-9]+([._-][a-z0-9]+)*$`)
	referencePat  = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]{0,127}$`)
)

// validName reports whether name is a well-formed repository name: `/`
// separated lowercase components.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if !nameComponent.MatchString(part) {
			return false
		}
	}
	return true
}

// validReference reports whether ref is a syntactically valid tag. Digest
// references are validated separately via pkg/digest.
func validReference(ref string) bool {
	return referencePat.MatchString(ref)
}

// resolveProxy decides where name would resolve if served through the
// Cache Controller rather than local storage. It never determines
// whether a request IS proxied by itself — callers read local storage
// first and only fall through to this resolution on a local miss. A
// single-component name is treated as an implicit Docker Hub library
// image; a name whose first component names a configured upstream is
// proxied to the rest of the path.
func resolveProxy(name string, upstreamNames map[string]bool) (upstream, image string, proxied bool) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) == 1 {
		return "dockerhub", "library/" + parts[0], true
	}
	if upstreamNames[parts[0]] {
		return parts[0], parts[1], true
	}
	return "", "", false
}
