package npm

import (
	"regexp"
	"strings"
)

// unscopedNamePattern matches a bare npm package name: lowercase ASCII
// alphanumerics, "-", "_".
var unscopedNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidatePackageName enforces the package name rules: lowercase ASCII
// alphanumerics, "-", "_", with an optional "@scope/" prefix following the
// same rules on each side.
func ValidatePackageName(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "@") {
		scope, rest, ok := strings.Cut(name[1:], "/")
		if !ok || scope == "" || rest == "" {
			return false
		}
		return unscopedNamePattern.MatchString(scope) && unscopedNamePattern.MatchString(rest)
	}
	return unscopedNamePattern.MatchString(name)
}
