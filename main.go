package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/xiaoLing0721/deeplx-worker/cache"
	"github.com/xiaoLing0721/deeplx-worker/config"
	"github.com/xiaoLing0721/deeplx-worker/deepl"
	"github.com/xiaoLing0721/deeplx-worker/logcolors"
	"github.com/xiaoLing0721/deeplx-worker/middleware"
)

var conf = config.Get()

var translator *deepl.Translator

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file, using environment variables")
	}
}

// evictable is implemented by stores that support expired-entry cleanup.
type evictable interface {
	Evict() int
}

// buildStore selects the cache backend: Redis when configured, then BoltDB,
// falling back to the in-memory store.
func buildStore() cache.Store {
	c := conf.Configuration

	if c.RedisURL != "" {
		store, err := cache.NewRedisStore(c.RedisURL, c.RedisKeyPrefix)
		if err != nil {
			log.Warnf("%s Redis unavailable, falling back: %v", logcolors.LogCacheInit, err)
		} else {
			log.Infof("%s Using Redis store at %s", logcolors.LogCacheInit, c.RedisURL)
			return store
		}
	}

	if c.CacheDBPath != "" {
		store, err := cache.NewBoltStore(c.CacheDBPath)
		if err != nil {
			log.Warnf("%s BoltDB unavailable, falling back: %v", logcolors.LogCacheInit, err)
		} else {
			log.Infof("%s Using BoltDB store at %s", logcolors.LogCacheInit, c.CacheDBPath)
			return store
		}
	}

	log.Infof("%s Using in-memory store", logcolors.LogCacheInit)
	return cache.NewMemoryStore()
}

// buildHandler assembles the router and the middleware chain from the
// current configuration.
func buildHandler() http.Handler {
	router := mux.NewRouter()
	setupRoutes(router)

	// Auth runs inside logging/CORS so rejected requests are still logged
	authed := middleware.AccessTokenMiddleware(conf.Configuration.AccessToken, []string{"/"})(router)
	logged := middleware.LoggingMiddleware(authed)
	return cors.AllowAll().Handler(logged)
}

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.GetLimiter(r.RemoteAddr).Allow() {
			log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// evictLoop periodically drops expired cache entries.
func evictLoop(store evictable, interval time.Duration) {
	log.Infof("%s Starting eviction loop (interval %v)", logcolors.LogCacheTTL, interval)
	for {
		time.Sleep(interval)
		if deleted := store.Evict(); deleted > 0 {
			log.Infof("%s Evicted %d expired entries", logcolors.LogCacheTTL, deleted)
		}
	}
}

func main() {
	c := conf.Configuration

	store := buildStore()
	if ev, ok := store.(evictable); ok {
		go evictLoop(ev, time.Duration(c.CacheInvalidationIntervalInSeconds)*time.Second)
	}

	client := deepl.NewClient(c.BackendURL, time.Duration(c.BackendTimeoutInSeconds)*time.Second)
	translator = deepl.NewTranslator(client, store, time.Duration(c.CacheTTLInSeconds)*time.Second)

	if c.AccessToken != "" {
		log.Infof("%s Private mode enabled, access token required", logcolors.LogConfig)
	}
	if c.DlSession == "" {
		log.Warnf("%s No dl_session configured, /v1/translate will reject all calls", logcolors.LogConfig)
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(c.RateLimitPerSecond), c.RateLimitBurstLimit)
	handler := limitMiddleware(buildHandler(), limiter)

	log.Infof("%s Listening on port %s", logcolors.LogServer, c.Port)
	log.Fatal(http.ListenAndServe(":"+c.Port, handler))
}
