package config

// SentryConfig enables error reporting to Sentry. An empty DSN disables it.
type SentryConfig struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
	Release     string `json:"release"`
	// TracesSampleRate is the share of transactions sent, between 0 and 1.
	TracesSampleRate float64 `json:"traces_sample_rate"`
}
