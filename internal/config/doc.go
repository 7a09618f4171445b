// Package config loads, merges and validates the configuration of the sync
// server and the bookkeeping client.
//
// Values are assembled from several sources; later sources override earlier
// non-zero fields:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//
// [GetStructuredConfig] builds the server configuration and
// [GetClientConfig] the client one.
package config
