package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// HashText returns a short deterministic hash of the given text.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])[:16]
}

// RequestKey derives a deterministic cache key from a recommendation
// request. List-valued preferences are sorted before hashing so request
// order does not fragment the cache.
func RequestKey(prefix, difficulty string, liked, organizations, exclude []string, ratingBias float64, limit int) string {
	var b strings.Builder
	b.WriteString("d=")
	b.WriteString(difficulty)
	writeSorted(&b, "l", liked)
	writeSorted(&b, "o", organizations)
	writeSorted(&b, "x", exclude)
	b.WriteString("|b=")
	b.WriteString(strconv.FormatFloat(ratingBias, 'g', -1, 64))
	b.WriteString("|n=")
	b.WriteString(strconv.Itoa(limit))

	return prefix + ":recommend:" + HashText(b.String())
}

func writeSorted(b *strings.Builder, tag string, values []string) {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)

	b.WriteString("|")
	b.WriteString(tag)
	b.WriteString("=")
	for i, v := range sorted {
		if i > 0 {
			b.WriteString("\x1f")
		}
		b.WriteString(v)
	}
}
