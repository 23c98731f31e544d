package config

import "github.com/spf13/viper"

// DefaultServerPort is used when server.port is omitted.
const DefaultServerPort = 8790

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Monitor defaults
	v.SetDefault("monitor.poll_interval_seconds", 300) // 5 minute cycle
	v.SetDefault("monitor.lookback_hours", 48)
	v.SetDefault("monitor.page_size", 100) // WooCommerce per_page maximum
	v.SetDefault("monitor.state_backend", "file")
	v.SetDefault("monitor.state_path", "processed_orders.json")

	// Folder defaults
	v.SetDefault("folder.template", "{order_number}_{customer_name}")
	v.SetDefault("folder.date_prefix", true)
	v.SetDefault("folder.max_name_length", 64)

	// Document defaults: everything on
	v.SetDefault("documents.invoice", true)
	v.SetDefault("documents.label", true)
	v.SetDefault("documents.details", true)

	// Filter defaults
	v.SetDefault("filters.statuses", []string{"processing", "completed"})

	// HTTP defaults
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_requests_per_minute", 60) // Stay under shared-host throttling
	v.SetDefault("http.max_retries", 4)
	v.SetDefault("http.retry_initial_interval_ms", 500)
	v.SetDefault("http.retry_max_interval_ms", 8000)

	// Invoice defaults
	v.SetDefault("invoice.render_timeout_seconds", 30)

	// Server defaults
	v.SetDefault("server.enabled", false)
}

// BindSensitiveEnvVars binds credential values to environment variables so
// they never have to live in a config file on disk.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("store.consumer_key", "ORDERMON_STORE_CONSUMER_KEY")
	v.BindEnv("store.consumer_secret", "ORDERMON_STORE_CONSUMER_SECRET")
	v.BindEnv("store.label_secret", "ORDERMON_STORE_LABEL_SECRET")
}
