package goIdentity

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadConfigFromEnv starts from [DefaultConfig] and applies GOIDENTITY_*
// environment variables.
//
// Recognized (durations are Go duration strings, lists are comma separated):
//   - GOIDENTITY_URL, GOIDENTITY_REALM, GOIDENTITY_CLIENT_ID
//   - GOIDENTITY_DELAY, GOIDENTITY_AUTHENTICATE, GOIDENTITY_REFRESH_SUCCESS_RATE, GOIDENTITY_SEED
//   - GOIDENTITY_ON_LOAD, GOIDENTITY_ENABLE_LOGGING, GOIDENTITY_REDIRECT_URI
//   - GOIDENTITY_ACCESS_TTL, GOIDENTITY_REFRESH_TTL, GOIDENTITY_REFRESH_ONLY_WHEN_EXPIRING, GOIDENTITY_ROTATE_REFRESH
//   - GOIDENTITY_REDIS_PREFIX
//   - GOIDENTITY_BEARER_PREFIX, GOIDENTITY_BEARER_EXCLUDED_URLS
//   - GOIDENTITY_AUDIT_ENABLED, GOIDENTITY_METRICS_ENABLED
//
// A malformed value is an error naming the variable. The result is not
// validated; Build does that.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{lookup: lookup}

	env.str("GOIDENTITY_URL", &cfg.Provider.URL)
	env.str("GOIDENTITY_REALM", &cfg.Provider.Realm)
	env.str("GOIDENTITY_CLIENT_ID", &cfg.Provider.ClientID)
	env.duration("GOIDENTITY_DELAY", &cfg.Provider.Delay)
	env.boolean("GOIDENTITY_AUTHENTICATE", &cfg.Provider.Authenticate)
	env.float("GOIDENTITY_REFRESH_SUCCESS_RATE", &cfg.Provider.RefreshSuccessRate)
	env.unsigned("GOIDENTITY_SEED", &cfg.Provider.Seed)

	var onLoad string
	if env.str("GOIDENTITY_ON_LOAD", &onLoad) {
		cfg.Init.OnLoad = OnLoad(onLoad)
	}
	env.boolean("GOIDENTITY_ENABLE_LOGGING", &cfg.Init.EnableLogging)
	env.str("GOIDENTITY_REDIRECT_URI", &cfg.Init.RedirectURI)

	env.duration("GOIDENTITY_ACCESS_TTL", &cfg.Token.AccessTTL)
	env.duration("GOIDENTITY_REFRESH_TTL", &cfg.Refresh.TTL)
	env.boolean("GOIDENTITY_REFRESH_ONLY_WHEN_EXPIRING", &cfg.Refresh.OnlyWhenExpiring)
	env.boolean("GOIDENTITY_ROTATE_REFRESH", &cfg.Refresh.RotateRefreshToken)

	env.str("GOIDENTITY_REDIS_PREFIX", &cfg.Session.RedisPrefix)

	env.str("GOIDENTITY_BEARER_PREFIX", &cfg.Bearer.Prefix)
	var excluded string
	if env.str("GOIDENTITY_BEARER_EXCLUDED_URLS", &excluded) {
		cfg.Bearer.ExcludedURLs = splitList(excluded)
	}

	env.boolean("GOIDENTITY_AUDIT_ENABLED", &cfg.Audit.Enabled)
	env.boolean("GOIDENTITY_METRICS_ENABLED", &cfg.Metrics.Enabled)

	if env.err != nil {
		return Config{}, env.err
	}
	return cfg, nil
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) raw(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) fail(key, value string, err error) {
	r.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
}

func (r *envReader) str(key string, dst *string) bool {
	v, ok := r.raw(key)
	if ok {
		*dst = v
	}
	return ok
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = d
}

func (r *envReader) float(key string, dst *float64) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = f
}

func (r *envReader) unsigned(key string, dst *uint64) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = n
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
