package config

// APIConfig configures the HTTP API serving /schedule and /cycles.
type APIConfig struct {
	// Addr is the listen address. Empty disables the API.
	Addr string `json:"addr"`
	// Token is the bearer token required by every request when set.
	Token string `json:"token"`
}

// Enabled reports whether the API should be served.
func (c APIConfig) Enabled() bool { return c.Addr != "" }
