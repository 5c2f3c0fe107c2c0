package grantor

import (
	"strings"

	"github.com/xraph/grantor/permission"
)

// matchGlob checks if a pattern matches a value with simple glob support.
// Supports a lone '*' and a trailing '*' (e.g., "report*" matches "reports").
func matchGlob(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// matchPermission checks if p covers the requested resource and action.
func matchPermission(p *permission.Permission, resource, action string) bool {
	return matchGlob(p.Resource, resource) && matchGlob(p.Action, action)
}
