// Package constants provides shared constants used throughout the vnetctl codebase.
// This includes timeouts, RPC parameter values, environment variable names, and
// other configuration values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultRPCTimeout is the standard timeout for XML-RPC calls to the frontend
	DefaultRPCTimeout = 30 * time.Second
)

// Pool query constants for one.vnpool.info. OpenNebula encodes the pool
// filter and pagination window as plain integers.
const (
	// PoolFilterMine selects resources belonging to the calling user
	PoolFilterMine = -3

	// PoolFilterAll selects all resources the caller can see
	PoolFilterAll = -2

	// PoolFilterGroup selects resources belonging to the caller's group
	PoolFilterGroup = -1

	// PoolRangeAll disables pagination when passed as both start and end id
	PoolRangeAll = -1
)

// Update and ownership constants for one.vn.update / one.vn.chown
const (
	// UpdateReplace replaces the whole template on update
	UpdateReplace = 0

	// UpdateMerge merges the new template into the existing one
	UpdateMerge = 1

	// OwnerUnchanged leaves the owner or group untouched in a chown call
	OwnerUnchanged = -1
)

// Environment variable names shared with the OpenNebula CLI tooling
const (
	// EnvEndpoint holds the XML-RPC endpoint URL
	EnvEndpoint = "ONE_XMLRPC"

	// EnvAuth holds the "user:password" credential or a path to a file containing it
	EnvAuth = "ONE_AUTH"
)

// Endpoint defaults
const (
	// DefaultEndpoint is the frontend XML-RPC endpoint on a local installation
	DefaultEndpoint = "http://localhost:2633/RPC2"

	// DefaultAuthFile is the credential file written by the OpenNebula CLI,
	// relative to the user's home directory
	DefaultAuthFile = ".one/one_auth"
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like credentials (rw-------)
	SecureFilePermissions = 0600
)
