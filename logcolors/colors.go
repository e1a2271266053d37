package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
)

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
)

// Cache-related log prefixes
const (
	LogCacheInit = Blue + "[Cache:Init]" + Reset
	LogCache     = Blue + "[Cache]" + Reset
	LogCacheTTL  = Blue + "[Cache:TTL]" + Reset
)

// Translation pipeline log prefixes
const (
	LogTranslate = Green + "[Translate]" + Reset
	LogBackend   = Cyan + "[Backend]" + Reset
)

// Middleware log prefixes
const (
	LogAuth      = Purple + "[Auth]" + Reset
	LogRateLimit = Purple + "[RateLimit]" + Reset
)
