package cache

import (
	"fmt"
	"time"
)

const (
	postsGenerationKey = "posts:gen"
	postsListPrefix    = "posts:list:g%d:%d:%d"
	postsPopularPrefix = "posts:popular:g%d:%d"
	revokedTokenPrefix = "auth:revoked:%s"
)

const (
	PostsListTTL    = 30 * time.Second
	PostsPopularTTL = time.Minute
)

// PostsListKey is the key for one page of the newest-first listing at
// generation gen.
func PostsListKey(gen int64, limit, offset int) string {
	return fmt.Sprintf(postsListPrefix, gen, limit, offset)
}

func PostsPopularKey(gen int64, limit int) string {
	return fmt.Sprintf(postsPopularPrefix, gen, limit)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(revokedTokenPrefix, jti)
}
