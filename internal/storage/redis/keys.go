package redis

import (
	"fmt"
	"strings"
)

// Key prefix for all account data
const keyPrefix = "acct"

// fileKeyPrefix returns the prefix shared by every file key under root
func fileKeyPrefix(root string) string {
	return fmt.Sprintf("%s:%s:file:", keyPrefix, root)
}

// fileKey returns the Redis key holding the bytes of one account file
func fileKey(root, name string) string {
	return fileKeyPrefix(root) + name
}

// filePattern returns a SCAN MATCH pattern for file names matching pattern.
// The root is escaped so only the file name part is a glob.
func filePattern(root, pattern string) string {
	return escapeGlob(fileKeyPrefix(root)) + pattern
}

// lockKey returns the Redis key used to lock a directory
func lockKey(root string) string {
	return fmt.Sprintf("%s:%s:lock", keyPrefix, root)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
