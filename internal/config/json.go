package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and
// string-friendly durations so that operators can keep a readable config
// file alongside env vars and flags.
type StructuredJSONConfig struct {
	App struct {
		Version string `json:"version"`
	} `json:"app,omitempty"`

	Auth struct {
		TokenSignKey string `json:"token_sign_key"`
		TokenIssuer  string `json:"token_issuer"`
	} `json:"auth,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Client struct {
		ServerURL      string   `json:"server_url"`
		Token          string   `json:"token"`
		DeviceID       string   `json:"device_id"`
		DBPath         string   `json:"db_path"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"client,omitempty"`

	Workers struct {
		SyncInterval         Duration `json:"sync_interval"`
		SyncDebounce         Duration `json:"sync_debounce"`
		ReconnectDelay       Duration `json:"reconnect_delay"`
		ConnectivityInterval Duration `json:"connectivity_interval"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version: jsonCfg.App.Version,
		},
		Auth: Auth{
			TokenSignKey: jsonCfg.Auth.TokenSignKey,
			TokenIssuer:  jsonCfg.Auth.TokenIssuer,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Client: Client{
			ServerURL:      jsonCfg.Client.ServerURL,
			Token:          jsonCfg.Client.Token,
			DeviceID:       jsonCfg.Client.DeviceID,
			DBPath:         jsonCfg.Client.DBPath,
			RequestTimeout: time.Duration(jsonCfg.Client.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:         time.Duration(jsonCfg.Workers.SyncInterval),
			SyncDebounce:         time.Duration(jsonCfg.Workers.SyncDebounce),
			ReconnectDelay:       time.Duration(jsonCfg.Workers.ReconnectDelay),
			ConnectivityInterval: time.Duration(jsonCfg.Workers.ConnectivityInterval),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
