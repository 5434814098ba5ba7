package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if len(c.Rooms) == 0 {
		return errors.New("at least one room is required")
	}
	seen := make(map[string]bool, len(c.Rooms))
	for i, room := range c.Rooms {
		if room.ID == "" {
			return fmt.Errorf("rooms[%d].id is required", i)
		}
		if seen[room.ID] {
			return fmt.Errorf("rooms[%d].id %q is duplicated", i, room.ID)
		}
		seen[room.ID] = true
		if room.BidCost < 1 {
			return fmt.Errorf("rooms[%d].bid_cost must be >= 1", i)
		}
		if room.BaseJackpot < 0 {
			return fmt.Errorf("rooms[%d].base_jackpot must be >= 0", i)
		}
		if room.RoundDuration != 0 && room.RoundDuration <= c.Game.AntiSnipeFloor {
			return fmt.Errorf("rooms[%d].round_duration must exceed game.anti_snipe_floor", i)
		}
		if room.Cooldown < 0 {
			return fmt.Errorf("rooms[%d].cooldown must be >= 0", i)
		}
	}

	if c.Game.PayoutShareBps < 1 || c.Game.PayoutShareBps > 10000 {
		return fmt.Errorf("game.payout_share_bps must be between 1 and 10000, got %d", c.Game.PayoutShareBps)
	}
	if c.Game.Tick <= 0 {
		return errors.New("game.tick must be positive")
	}
	if c.Game.AntiSnipeFloor >= c.Game.RoundDuration {
		return errors.New("game.anti_snipe_floor must be shorter than game.round_duration")
	}

	if c.Chain.TreasuryAddress == "" && len(c.Chain.Networks) > 0 {
		return errors.New("chain.treasury_address is required when networks are configured")
	}
	for name, net := range c.Chain.Networks {
		if net.URL == "" {
			return fmt.Errorf("chain.networks.%s.url is required", name)
		}
		rate, err := decimal.NewFromString(net.Rate)
		if err != nil {
			return fmt.Errorf("chain.networks.%s.rate: %w", name, err)
		}
		if rate.Sign() <= 0 {
			return fmt.Errorf("chain.networks.%s.rate must be positive", name)
		}
	}

	if c.Journal.BatchSize < 1 {
		return errors.New("journal.batch_size must be >= 1")
	}
	if c.Journal.BufferSize < 1 {
		return errors.New("journal.buffer_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
