package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// ServerURL is the base URL of the sync server.
	ServerURL string
	// Token is the opaque bearer token sent with every sync call.
	Token string
	// DeviceID is the stable device identifier sent in X-Device-ID.
	DeviceID string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DBPath is the filesystem path of the local SQLite database.
	DBPath string
}

// ClientWorkers contains background sync timing settings.
type ClientWorkers struct {
	// SyncInterval defines how often the periodic sync cycle runs.
	SyncInterval time.Duration
	// SyncDebounce is the quiet period after an edit before auto-sync.
	SyncDebounce time.Duration
	// ReconnectDelay batches reconnect events into one cycle.
	ReconnectDelay time.Duration
	// ConnectivityInterval is the period of the connectivity probe.
	ConnectivityInterval time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
// A missing device id is filled with a freshly generated UUID.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	deviceID := cfg.Client.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	clientCfg := &ClientConfig{
		Adapter: ClientAdapter{
			ServerURL:      cfg.Client.ServerURL,
			Token:          cfg.Client.Token,
			DeviceID:       deviceID,
			RequestTimeout: cfg.Client.RequestTimeout,
		},
		Storage: ClientStorage{
			DBPath: cfg.Client.DBPath,
		},
		Workers: ClientWorkers{
			SyncInterval:         cfg.Workers.SyncInterval,
			SyncDebounce:         cfg.Workers.SyncDebounce,
			ReconnectDelay:       cfg.Workers.ReconnectDelay,
			ConnectivityInterval: cfg.Workers.ConnectivityInterval,
		},
	}

	return clientCfg, clientCfg.validate()
}
