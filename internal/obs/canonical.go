package obs

import "strings"

// CanonicalPath collapses resource identifiers to placeholders so metric
// label cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if path == "/v1/notifications/stream" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/v1/notifications/"); ok {
		if id, found := strings.CutSuffix(rest, "/read"); found && id != "" && !strings.Contains(id, "/") {
			return "/v1/notifications/:id/read"
		}
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/v1/doctors/"); ok {
		if id, found := strings.CutSuffix(rest, "/rating"); found && id != "" && !strings.Contains(id, "/") {
			return "/v1/doctors/:id/rating"
		}
		return path
	}
	for _, prefix := range []string{
		"/v1/admin/applications/",
		"/v1/appointments/",
		"/v1/family/",
	} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			if rest == "" || strings.Contains(rest, "/") {
				return path
			}
			return prefix + ":id"
		}
	}
	return path
}
