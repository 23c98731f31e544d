package config

import "time"

// Config is the root configuration for the order monitor.
// Values load from ordermon.toml with ORDERMON_* environment overrides.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Folder    FolderConfig    `mapstructure:"folder"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Filters   FiltersConfig   `mapstructure:"filters"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Server    ServerConfig    `mapstructure:"server"`
}

// StoreConfig identifies the WooCommerce store and its REST credentials.
type StoreConfig struct {
	URL            string `mapstructure:"url"`
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	// LabelSecret authenticates the admin-ajax shipping label lookup.
	// Optional; when empty the AJAX fallback is skipped.
	LabelSecret string `mapstructure:"label_secret"`
}

// MonitorConfig controls the polling cycle and the processed-order state store.
type MonitorConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	LookbackHours       int `mapstructure:"lookback_hours"`
	PageSize            int `mapstructure:"page_size"`

	// StateBackend selects where processed-order ids are persisted:
	// "file" (atomic-replace JSON) or "sqlite".
	StateBackend string `mapstructure:"state_backend"`
	StatePath    string `mapstructure:"state_path"`

	// LogFile, when set, tees monitor output to a plain-text log.
	LogFile string `mapstructure:"log_file"`
}

// FolderConfig controls per-order output folder naming.
type FolderConfig struct {
	BaseDir       string `mapstructure:"base_dir"`
	Template      string `mapstructure:"template"`
	DatePrefix    bool   `mapstructure:"date_prefix"`
	MaxNameLength int    `mapstructure:"max_name_length"`
}

// DocumentsConfig toggles individual document generators.
type DocumentsConfig struct {
	Invoice bool `mapstructure:"invoice"`
	Label   bool `mapstructure:"label"`
	Details bool `mapstructure:"details"`
}

// FiltersConfig restricts which fetched orders are processed. Shipping and
// payment entries match as case-insensitive substrings, so "bpost" covers
// every bpost rate variant.
type FiltersConfig struct {
	Statuses        []string `mapstructure:"statuses"`
	ShippingMethods []string `mapstructure:"shipping_methods"`
	PaymentMethods  []string `mapstructure:"payment_methods"`
	MinTotal        string   `mapstructure:"min_total"`
}

// HTTPConfig bounds outbound API traffic and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds         int `mapstructure:"timeout_seconds"`
	MaxRequestsPerMinute   int `mapstructure:"max_requests_per_minute"`
	MaxRetries             int `mapstructure:"max_retries"`
	RetryInitialIntervalMS int `mapstructure:"retry_initial_interval_ms"`
	RetryMaxIntervalMS     int `mapstructure:"retry_max_interval_ms"`
}

// InvoiceConfig controls PDF invoice rendering.
type InvoiceConfig struct {
	RenderTimeoutSeconds int    `mapstructure:"render_timeout_seconds"`
	CompanyName          string `mapstructure:"company_name"`
	CompanyAddress       string `mapstructure:"company_address"`
	FooterNote           string `mapstructure:"footer_note"`
}

// ServerConfig controls the local status/control HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Port is nil for the default port. 0 is invalid.
	Port *int `mapstructure:"port"`
}

// PollInterval returns the cycle period as a duration.
func (c *MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Lookback returns the fetch window as a duration.
func (c *MonitorConfig) Lookback() time.Duration {
	return time.Duration(c.LookbackHours) * time.Hour
}

// Timeout returns the per-request HTTP timeout as a duration.
func (c *HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryInitialInterval returns the first backoff delay.
func (c *HTTPConfig) RetryInitialInterval() time.Duration {
	return time.Duration(c.RetryInitialIntervalMS) * time.Millisecond
}

// RetryMaxInterval returns the backoff delay ceiling.
func (c *HTTPConfig) RetryMaxInterval() time.Duration {
	return time.Duration(c.RetryMaxIntervalMS) * time.Millisecond
}

// RenderTimeout returns the invoice render timeout as a duration.
func (c *InvoiceConfig) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

// ServerPort returns the configured port or the default.
func (c *ServerConfig) ServerPort() int {
	if c.Port != nil {
		return *c.Port
	}
	return DefaultServerPort
}
