// Package config builds the process-wide Config once, at the composition
// root, from the environment (optionally layered over a .env file). Nothing
// outside this package calls os.Getenv directly, per the "global mutable
// config" fix in SPEC_FULL.md §9.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// HashAlgorithm selects the C1 hash function implementation.
type HashAlgorithm string

const (
	AlgorithmSHA1    HashAlgorithm = "sha1"
	AlgorithmSHA256  HashAlgorithm = "sha256"
	AlgorithmBLAKE3  HashAlgorithm = "blake3"
	defaultAlgorithm               = AlgorithmSHA1
)

// Config is the fully-resolved process configuration. It is built once in
// cmd/, which passes the fields each component needs to its constructor.
type Config struct {
	// REST_API_HOST / REST_API_PORT: this site's own REST service endpoint.
	RESTAPIHost string
	RESTAPIPort int

	// CORE_API_HOST / CORE_API_PORT: the authority endpoint.
	CoreAPIHost string
	CoreAPIPort int

	// SITE_NAME / CORE_NAME: identities. Equality defines "this is core."
	SiteName string
	CoreName string

	// BASELINE: absolute root path of the mounted tree.
	Baseline string

	// Backend-specific credentials for the hash store.
	SQLitePath string

	LogLevel string
	Debug    bool

	HashAlgorithm HashAlgorithm

	// Retry/backoff tuning for the REST client (§4.3).
	MaxRetries      int
	InnerAttempts   int
	InnerDelay      time.Duration
	OuterDelay      time.Duration
	RequestTimeout  time.Duration
	LogRetentionMax time.Duration

	// ShortCircuitEqualSubtrees opts into the MAY-optimization in §4.5's
	// remote BFS comparison; default false preserves the literal base
	// behavior of always descending.
	ShortCircuitEqualSubtrees bool

	// CoordinatorInterval: how often the C5 reconciliation loop runs.
	CoordinatorInterval time.Duration
}

// IsCore reports whether this process is the designated authority site.
func (c *Config) IsCore() bool {
	return c.SiteName != "" && c.SiteName == c.CoreName
}

// RESTAPIURL returns this site's own base URL, selecting https:// when the
// port is 443 per spec §6.2 ("Ports 443 implicitly select https://").
func (c *Config) RESTAPIURL() string {
	return buildURL(c.RESTAPIHost, c.RESTAPIPort)
}

// CoreAPIURL returns the authority's base URL under the same rule.
func (c *Config) CoreAPIURL() string {
	return buildURL(c.CoreAPIHost, c.CoreAPIPort)
}

func buildURL(host string, port int) string {
	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Load resolves Config from the environment, layering a .env file (if one
// exists at envFile) underneath real environment variables — real env vars
// always win, matching how a container deployment expects to override a
// checked-in default file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		}
	}

	c := &Config{
		RESTAPIHost:     getEnv("REST_API_HOST", "0.0.0.0"),
		RESTAPIPort:     getEnvInt("REST_API_PORT", 5000),
		CoreAPIHost:     getEnv("CORE_API_HOST", ""),
		CoreAPIPort:     getEnvInt("CORE_API_PORT", 443),
		SiteName:        getEnv("SITE_NAME", ""),
		CoreName:        getEnv("CORE_NAME", ""),
		Baseline:        getEnv("BASELINE", ""),
		SQLitePath:      getEnv("HASH_STORE_SQLITE_PATH", "baseline-core.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Debug:           getEnvBool("DEBUG", false),
		HashAlgorithm:   HashAlgorithm(strings.ToLower(getEnv("HASH_ALGORITHM", string(defaultAlgorithm)))),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		InnerAttempts:   getEnvInt("INNER_ATTEMPTS", 5),
		InnerDelay:      time.Duration(getEnvInt("RETRY_DELAY_SECONDS", 5)) * time.Second,
		OuterDelay:      time.Duration(getEnvInt("LONG_DELAY_SECONDS", 30)) * time.Second,
		RequestTimeout:  time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		LogRetentionMax: time.Duration(getEnvInt("LOG_RETENTION_DAYS", 90)) * 24 * time.Hour,
		ShortCircuitEqualSubtrees: getEnvBool("SHORT_CIRCUIT_EQUAL_SUBTREES", false),
		CoordinatorInterval:       time.Duration(getEnvInt("COORDINATOR_INTERVAL_SECONDS", 300)) * time.Second,
	}

	switch c.HashAlgorithm {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmBLAKE3:
	default:
		return nil, fmt.Errorf("config: unknown HASH_ALGORITHM %q", c.HashAlgorithm)
	}
	if c.SiteName == "" {
		return nil, fmt.Errorf("config: SITE_NAME is required")
	}
	if c.Baseline == "" {
		return nil, fmt.Errorf("config: BASELINE is required")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
