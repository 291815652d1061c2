package cache

import (
	"fmt"
	"strings"
)

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// GenerateKeyWithParams creates a cache key with multiple parameters. Empty
// parameters are kept as "-" so that keys stay positional.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, param := range params {
		s := fmt.Sprintf("%v", param)
		if s == "" {
			s = "-"
		}
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}
