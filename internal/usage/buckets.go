package usage

import (
	"path"
	"strings"
)

// Bucketing keeps every blob in a UsageDataPoint inside a small fixed label
// set, so billing cardinality is bounded no matter what paths tenants serve.

func statusBucket(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

var exactPaths = map[string]bool{
	"/":            true,
	"/favicon.ico": true,
	"/robots.txt":  true,
}

// Order matters only for readability; prefixes are mutually exclusive.
var rootPrefixes = []string{
	"/api/",
	"/static/",
	"/assets/",
	"/public/",
	"/.well-known/",
}

var extensionBuckets = map[string]string{
	".js":    "ext:script",
	".mjs":   "ext:script",
	".cjs":   "ext:script",
	".css":   "ext:stylesheet",
	".png":   "ext:image",
	".jpg":   "ext:image",
	".jpeg":  "ext:image",
	".gif":   "ext:image",
	".svg":   "ext:image",
	".webp":  "ext:image",
	".avif":  "ext:image",
	".ico":   "ext:image",
	".woff":  "ext:font",
	".woff2": "ext:font",
	".ttf":   "ext:font",
	".otf":   "ext:font",
	".eot":   "ext:font",
	".json":  "ext:json",
	".map":   "ext:json",
	".xml":   "ext:xml",
	".html":  "ext:html",
	".htm":   "ext:html",
}

// pathnameBucket maps an arbitrary request path onto one label from the
// fixed set. Total: every input lands in exactly one bucket.
func pathnameBucket(p string) string {
	if exactPaths[p] {
		return p
	}

	for _, root := range rootPrefixes {
		if strings.HasPrefix(p, root) {
			return root + "*"
		}
	}

	if ext := strings.ToLower(path.Ext(p)); ext != "" {
		if bucket, ok := extensionBuckets[ext]; ok {
			return bucket
		}
	}

	return "/other"
}

var knownCacheStatuses = map[string]bool{
	"HIT":         true,
	"MISS":        true,
	"BYPASS":      true,
	"EXPIRED":     true,
	"STALE":       true,
	"REVALIDATED": true,
}

// cacheStatus normalizes the edge cache signal; anything unrecognized or
// absent is billed as dynamically generated.
func cacheStatus(header string) string {
	normalized := strings.ToUpper(strings.TrimSpace(header))
	if knownCacheStatuses[normalized] {
		return normalized
	}
	return "DYNAMIC"
}
