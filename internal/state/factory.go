// SPDX-License-Identifier: MIT

package state

import (
	"fmt"

	"github.com/ManuGH/apiwatch/internal/config"
)

// Open creates the state store selected by the configuration.
func Open(cfg config.Config) (Store, error) {
	switch cfg.State.Backend {
	case config.StateMemory, "":
		return NewMemoryStore(), nil
	case config.StateBadger:
		return NewBadgerStore(cfg.EffectiveBadgerDir())
	case config.StateRedis:
		return NewRedisStore(RedisConfig{
			Addr:     cfg.State.RedisAddr,
			Password: cfg.State.RedisPassword,
			DB:       cfg.State.RedisDB,
		})
	default:
		return nil, fmt.Errorf("state: unknown backend %q", cfg.State.Backend)
	}
}
