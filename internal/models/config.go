package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Bridge   BridgeConfig
	Throttle ThrottleConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// BridgeConfig holds wire-bridge settings. EncryptionKey is the hex-encoded
// 32-byte key protecting stored partner tokens; an empty value disables bridge
// operations only, the rest of the engine keeps working.
type BridgeConfig struct {
	BaseURL           string
	EncryptionKey     string
	RequestsPerWindow int
	Window            time.Duration
}

// ThrottleConfig holds the advisory inbound throttles.
type ThrottleConfig struct {
	Cooldown     time.Duration
	GlobalLimit  int
	GlobalWindow time.Duration
}
