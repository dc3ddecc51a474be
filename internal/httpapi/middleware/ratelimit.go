package middleware

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/secret-echo/secret-echo/internal/common"
	"github.com/secret-echo/secret-echo/internal/store/redisstore"
)

// RateLimit caps requests per client IP over a fixed window. With redis
// configured the window is shared across instances; otherwise each process
// keeps its own token buckets. A redis outage fails open: throttling is a
// courtesy, not a correctness guarantee.
func RateLimit(store *redisstore.Store, name string, max int, window time.Duration, msg string) gin.HandlerFunc {
	if store != nil {
		return redisLimit(store, name, max, window, msg)
	}
	return localLimit(max, window, msg)
}

func redisLimit(store *redisstore.Store, name string, max int, window time.Duration, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		n, err := store.IncrWindow(c.Request.Context(), key, window)
		if err != nil {
			log.Printf("[ratelimit] redis error key=%s err=%v", key, err)
			c.Next()
			return
		}
		if n > int64(max) {
			common.Fail(c, http.StatusTooManyRequests, 42900, msg)
			c.Abort()
			return
		}
		c.Next()
	}
}

func localLimit(max int, window time.Duration, msg string) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limit := rate.Every(window / time.Duration(max))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(limit, max)
			limiters[ip] = l
		}
		mu.Unlock()

		if !l.Allow() {
			common.Fail(c, http.StatusTooManyRequests, 42900, msg)
			c.Abort()
			return
		}
		c.Next()
	}
}
