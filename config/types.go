package config

// RateLimit bounds the request rate each client may sustain against the
// gateway. A zero RequestsPerSecond disables limiting.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Indexer selects the SQL store that mirrors bounty events for listing
// queries. Driver is "sqlite" or "postgres"; an empty DSN disables indexing.
type Indexer struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// NATS configures the optional event bus publisher.
type NATS struct {
	URL     string `toml:"URL"`
	Subject string `toml:"Subject"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}
