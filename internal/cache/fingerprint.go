package cache

import (
	"regexp"
	"strconv"
	"strings"
)

// sampleLen is how many characters of the head and tail of an image payload
// take part in its fingerprint.
const sampleLen = 50

var dataURIHeader = regexp.MustCompile(`^data:[^;,]*;base64,`)

// StripDataURI removes a leading "data:<type>;base64," header if present.
func StripDataURI(payload string) string {
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}
	return dataURIHeader.ReplaceAllLiteralString(payload, "")
}

// NormalizeText trims surrounding whitespace and lower-cases s.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fingerprint derives the cache key for an analysis request. A non-empty image
// takes precedence over text.
//
// Image keys sample the first and last 50 characters of the base64 payload and
// its length. This is a heuristic and not a hash: two different images with the
// same encoded length and identical head and tail collide and share a cached
// result. Hashing the full payload would cost a pass over several megabytes per
// request; the collision is accepted instead.
func Fingerprint(text, image string) string {
	if image != "" {
		clean := StripDataURI(image)
		head := clean[:min(sampleLen, len(clean))]
		tail := clean[max(0, len(clean)-sampleLen):]
		return "IMG_" + head + "_" + tail + "_" + strconv.Itoa(len(clean))
	}
	return "TXT_" + NormalizeText(text)
}
