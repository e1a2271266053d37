package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port string `envconfig:"PORT" default:"8080"`
		// AccessToken enables private mode: when set, every translation
		// endpoint requires the matching token.
		AccessToken string `envconfig:"TOKEN" default:""`
		// DlSession is the account session credential for the pro endpoint.
		// When empty, /v1/translate rejects all calls with 401.
		DlSession               string `envconfig:"DL_SESSION" default:""`
		BackendURL              string `envconfig:"DEEPL_API_URL" default:"https://www2.deepl.com/jsonrpc"`
		BackendTimeoutInSeconds int    `envconfig:"BACKEND_TIMEOUT_IN_SECONDS" default:"30"`
		CacheTTLInSeconds       int    `envconfig:"CACHE_TTL_IN_SECONDS" default:"3600"`
		// CacheDBPath selects the BoltDB store; RedisURL takes precedence.
		CacheDBPath                        string `envconfig:"CACHE_DB_PATH" default:""`
		RedisURL                           string `envconfig:"REDIS_URL" default:""`
		RedisKeyPrefix                     string `envconfig:"REDIS_KEY_PREFIX" default:"deeplx:"`
		CacheInvalidationIntervalInSeconds int    `envconfig:"CACHE_INVALIDATION_INTERVAL_IN_SECONDS" default:"3600"`
		RateLimitPerSecond                 int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"10"`
		RateLimitBurstLimit                int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"20"`
	}

	FeatureFlags struct {
		// CacheEnabled is the default cache policy; the per-request
		// "cache" field overrides it.
		CacheEnabled bool `envconfig:"FF_CACHE_ENABLED" default:"true"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
