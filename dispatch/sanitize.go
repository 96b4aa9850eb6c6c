package dispatch

import "regexp"

// These patterns catch the shapes that most commonly leak into error
// strings from HTTP clients and database drivers: bearer tokens, basic-auth
// userinfo in URLs, and key=value credential pairs. Not a general-purpose
// secret scanner — a targeted filter over what our own outbound calls
// (embed, rerank, store backends) are capable of putting into an error.
var (
	bearerRe    = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]+`)
	userinfoRe  = regexp.MustCompile(`://[^/\s:@]+:[^/\s:@]+@`)
	apiKeyRe    = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[:=]\s*\S+`)
)

// sanitize strips credential-shaped substrings from a message before it
// ever reaches a tool-call response (spec §4.8: "never leaks credentials,
// URLs with keys, or stack traces").
func sanitize(s string) string {
	s = bearerRe.ReplaceAllString(s, "bearer [redacted]")
	s = userinfoRe.ReplaceAllString(s, "://[redacted]@")
	s = apiKeyRe.ReplaceAllString(s, "$1=[redacted]")
	return s
}
