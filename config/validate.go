package config

import (
	"github.com/shopspring/decimal"

	"github.com/floriandheer/ordermon/errors"
)

// Validate checks that the configuration is usable before any work starts.
// Credential and endpoint problems fail here instead of surfacing as
// confusing HTTP errors mid-cycle.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return errors.NewConfigurationError("store.url is required")
	}
	if c.Store.ConsumerKey == "" {
		return errors.NewConfigurationError("store.consumer_key is required (or set ORDERMON_STORE_CONSUMER_KEY)")
	}
	if c.Store.ConsumerSecret == "" {
		return errors.NewConfigurationError("store.consumer_secret is required (or set ORDERMON_STORE_CONSUMER_SECRET)")
	}
	if c.Folder.BaseDir == "" {
		return errors.NewConfigurationError("folder.base_dir is required")
	}

	if c.Monitor.PollIntervalSeconds <= 0 {
		return errors.Newf("monitor.poll_interval_seconds must be > 0, got %d", c.Monitor.PollIntervalSeconds)
	}
	if c.Monitor.LookbackHours <= 0 {
		return errors.Newf("monitor.lookback_hours must be > 0, got %d", c.Monitor.LookbackHours)
	}
	if c.Monitor.PageSize <= 0 || c.Monitor.PageSize > 100 {
		return errors.Newf("monitor.page_size must be in 1..100, got %d", c.Monitor.PageSize)
	}

	switch c.Monitor.StateBackend {
	case "file", "sqlite":
	default:
		return errors.Newf("monitor.state_backend must be \"file\" or \"sqlite\", got %q", c.Monitor.StateBackend)
	}

	if c.Folder.MaxNameLength <= 0 {
		return errors.Newf("folder.max_name_length must be > 0, got %d", c.Folder.MaxNameLength)
	}

	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.Newf("http.timeout_seconds must be > 0, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.HTTP.MaxRetries < 0 {
		return errors.Newf("http.max_retries must be >= 0, got %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.MaxRequestsPerMinute < 0 {
		return errors.Newf("http.max_requests_per_minute must be >= 0, got %d", c.HTTP.MaxRequestsPerMinute)
	}

	if c.Filters.MinTotal != "" {
		if _, err := decimal.NewFromString(c.Filters.MinTotal); err != nil {
			return errors.Wrapf(err, "filters.min_total is not a valid amount: %q", c.Filters.MinTotal)
		}
	}

	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port <= 0 {
		return errors.Newf("server.port must be positive, got %d (omit for default %d)", *c.Server.Port, DefaultServerPort)
	}

	return nil
}
