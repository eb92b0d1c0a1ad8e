package utils

import (
	"crypto/md5"
	"fmt"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// CacheKey derives the result-cache key for a query/visualization pair.
func CacheKey(query, visualizationType string) string {
	return HashString(query + "_" + visualizationType)
}
