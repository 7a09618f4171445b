package config

import "time"

// Fallbacks applied by applyDefaults when the merged config leaves a
// timing knob unset.
const (
	defaultRequestTimeout       = 15 * time.Second
	defaultSyncInterval         = 5 * time.Minute
	defaultSyncDebounce         = 2 * time.Second
	defaultReconnectDelay       = 3 * time.Second
	defaultConnectivityInterval = 30 * time.Second
)

// applyDefaults fills timing knobs that no source provided.
func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Client.RequestTimeout <= 0 {
		cfg.Client.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Workers.SyncInterval <= 0 {
		cfg.Workers.SyncInterval = defaultSyncInterval
	}
	if cfg.Workers.SyncDebounce <= 0 {
		cfg.Workers.SyncDebounce = defaultSyncDebounce
	}
	if cfg.Workers.ReconnectDelay <= 0 {
		cfg.Workers.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.Workers.ConnectivityInterval <= 0 {
		cfg.Workers.ConnectivityInterval = defaultConnectivityInterval
	}
}

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants both binaries rely on. Binary-specific requirements (server
// DSN, client DB path) are validated by the respective config views so that
// running one binary does not demand the other's settings.
func (cfg *StructuredConfig) validate() error {
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DBPath == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.SyncDebounce <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
