package config

import "time"

// ServerConfig is the root configuration for a bidblazed instance.
type ServerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DBConfig       `yaml:"database"`
	Game     GameConfig     `yaml:"game"`
	Rooms    []RoomConfig   `yaml:"rooms"`
	Chain    ChainConfig    `yaml:"chain"`
	Auth     AuthConfig     `yaml:"auth"`
	Journal  JournalConfig  `yaml:"journal"`
}

// InstanceConfig identifies this server instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// HTTPConfig holds the websocket/HTTP listener settings.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`
	SendBuffer   int           `yaml:"send_buffer"` // Per-connection outbound queue
}

// DBConfig holds the ledger database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// GameConfig holds round timing shared by all rooms unless overridden.
type GameConfig struct {
	Tick           time.Duration `yaml:"tick"`             // Engine tick period
	RoundDuration  time.Duration `yaml:"round_duration"`   // ACTIVE phase length at round start
	Cooldown       time.Duration `yaml:"cooldown"`         // ENDED phase length
	AntiSnipeFloor time.Duration `yaml:"anti_snipe_floor"` // Minimum remaining time after any bid
	PayoutShareBps int           `yaml:"payout_share_bps"` // Share of each bid added to the pot, in basis points
}

// RoomConfig defines one auction room. Rooms are static for the process
// lifetime; there is no dynamic creation or teardown.
type RoomConfig struct {
	ID          string `yaml:"id"`
	BidCost     int64  `yaml:"bid_cost"`     // Cents per bid
	BaseJackpot int64  `yaml:"base_jackpot"` // Cents the pot resets to each round

	// Optional overrides of the shared game timing.
	RoundDuration time.Duration `yaml:"round_duration"`
	Cooldown      time.Duration `yaml:"cooldown"`
}

// ChainConfig holds on-chain deposit verification settings.
type ChainConfig struct {
	TreasuryAddress string                   `yaml:"treasury_address"`
	MaxAttempts     int                      `yaml:"max_attempts"`
	RetryDelay      time.Duration            `yaml:"retry_delay"`
	Timeout         time.Duration            `yaml:"timeout"`
	Networks        map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig holds per-network lookup endpoint and conversion rate.
type NetworkConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Rate   string `yaml:"rate"` // Decimal cents credited per on-chain unit (e.g. "240000" per ETH)
}

// AuthConfig holds session and password hashing settings.
type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// JournalConfig holds batch journal writer settings.
type JournalConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}
