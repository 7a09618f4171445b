package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN (server)
//	-c/-config json file path with configs
//	-token-sign-key token verification key
//	-token-issuer expected token issuer name
//	-request-timeout server request timeout (e.g., "30s", "1m")
//	-server-url sync server base URL (client)
//	-token bearer token (client)
//	-device-id stable device identifier (client)
//	-db-path local sqlite database path (client)
//	-sync-interval background sync period (client)
//	-sync-debounce quiet period after an edit before auto-sync (client)
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var jsonConfigPath string
	var tokenSignKey string
	var tokenIssuer string
	var requestTimeout time.Duration
	var serverURL string
	var token string
	var deviceID string
	var dbPath string
	var syncInterval time.Duration
	var syncDebounce time.Duration

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token verification key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.StringVar(&serverURL, "server-url", "", "Sync server base URL")
	flag.StringVar(&token, "token", "", "Bearer token")
	flag.StringVar(&deviceID, "device-id", "", "Stable device identifier")
	flag.StringVar(&dbPath, "db-path", "", "Local sqlite database path")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync period")
	flag.DurationVar(&syncDebounce, "sync-debounce", 0, "Auto-sync debounce after an edit")

	flag.Parse()

	return &StructuredConfig{
		Auth: Auth{
			TokenSignKey: tokenSignKey,
			TokenIssuer:  tokenIssuer,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Client: Client{
			ServerURL: serverURL,
			Token:     token,
			DeviceID:  deviceID,
			DBPath:    dbPath,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
			SyncDebounce: syncDebounce,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// Returns an empty string when neither Host nor Port are set.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
