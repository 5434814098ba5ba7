package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHTTPAddr         = ":8080"
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultPongTimeout      = 60 * time.Second
	DefaultSendBuffer       = 64
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultTick             = 100 * time.Millisecond
	DefaultRoundDuration    = 5 * time.Minute
	DefaultCooldown         = 15 * time.Second
	DefaultAntiSnipeFloor   = 10 * time.Second
	DefaultPayoutShareBps   = 9500
	DefaultChainMaxAttempts = 5
	DefaultChainRetryDelay  = 3 * time.Second
	DefaultChainTimeout     = 10 * time.Second
	DefaultSessionTTL       = 24 * time.Hour
	DefaultBcryptCost       = 10
	DefaultBatchSize        = 500
	DefaultFlushInterval    = 1 * time.Second
	DefaultBufferSize       = 4096
)

func (c *ServerConfig) applyDefaults() {
	// HTTP defaults
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = DefaultWriteTimeout
	}
	if c.HTTP.PingInterval == 0 {
		c.HTTP.PingInterval = DefaultPingInterval
	}
	if c.HTTP.PongTimeout == 0 {
		c.HTTP.PongTimeout = DefaultPongTimeout
	}
	if c.HTTP.SendBuffer == 0 {
		c.HTTP.SendBuffer = DefaultSendBuffer
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Game defaults
	if c.Game.Tick == 0 {
		c.Game.Tick = DefaultTick
	}
	if c.Game.RoundDuration == 0 {
		c.Game.RoundDuration = DefaultRoundDuration
	}
	if c.Game.Cooldown == 0 {
		c.Game.Cooldown = DefaultCooldown
	}
	if c.Game.AntiSnipeFloor == 0 {
		c.Game.AntiSnipeFloor = DefaultAntiSnipeFloor
	}
	if c.Game.PayoutShareBps == 0 {
		c.Game.PayoutShareBps = DefaultPayoutShareBps
	}

	// Chain defaults
	if c.Chain.MaxAttempts == 0 {
		c.Chain.MaxAttempts = DefaultChainMaxAttempts
	}
	if c.Chain.RetryDelay == 0 {
		c.Chain.RetryDelay = DefaultChainRetryDelay
	}
	if c.Chain.Timeout == 0 {
		c.Chain.Timeout = DefaultChainTimeout
	}

	// Auth defaults
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = DefaultBcryptCost
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}
}
