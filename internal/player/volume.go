package player

import (
	"context"
	"fmt"

	"github.com/pmarks/tunefold/internal/engine"
	"github.com/pmarks/tunefold/internal/settings"
	"github.com/rs/zerolog"
)

// Volume performs clamped, step-wise volume adjustment with a persisted
// level. An adjustment that would not move the level is a full no-op:
// no engine call, no store write.
type Volume struct {
	engine   engine.Engine
	store    settings.Store
	listener Listener
	logger   zerolog.Logger

	step  int
	level int
}

func newVolume(eng engine.Engine, store settings.Store, listener Listener, logger zerolog.Logger, step, level int) *Volume {
	return &Volume{
		engine:   eng,
		store:    store,
		listener: listener,
		logger:   logger.With().Str("component", "volume").Logger(),
		step:     step,
		level:    level,
	}
}

// Level returns the current volume level.
func (v *Volume) Level() int {
	return v.level
}

// Adjust moves the level one step in direction dir (+1 or -1), clamped
// to [0, 100]. On change it applies the level to the engine, persists
// it, and updates the volume indicator. The store write failure is
// returned to the caller; the level is not advanced past what the store
// reflects.
func (v *Volume) Adjust(ctx context.Context, dir int) (int, error) {
	next := clampInt(v.level+dir*v.step, 0, 100)
	if next == v.level {
		return v.level, nil
	}

	if err := v.engine.SetVolume(next); err != nil {
		v.logger.Warn().Err(err).Msg("Engine volume change failed")
		return v.level, nil
	}
	if err := v.store.SetInt(ctx, settings.KeyCurrentVolume, next); err != nil {
		return v.level, fmt.Errorf("failed to persist volume: %w", err)
	}

	v.level = next
	v.listener.VolumeIconChanged(next == 0)
	v.listener.VolumeChanged(next)
	v.logger.Debug().Int("level", next).Msg("Volume changed")
	return next, nil
}

// sessionVolume returns the persisted session volume. On a store where
// no session has stored one yet it falls back to the configured default
// volume and persists that as the session value.
func sessionVolume(ctx context.Context, store settings.Store) (int, error) {
	stored, err := store.Has(ctx, settings.KeyCurrentVolume)
	if err != nil {
		return 0, fmt.Errorf("failed to read volume: %w", err)
	}
	if stored {
		return store.GetInt(ctx, settings.KeyCurrentVolume)
	}

	level, err := store.GetInt(ctx, settings.KeyDefVolume)
	if err != nil {
		return 0, fmt.Errorf("failed to read default volume: %w", err)
	}
	if err := store.SetInt(ctx, settings.KeyCurrentVolume, level); err != nil {
		return 0, fmt.Errorf("failed to seed volume: %w", err)
	}
	return level, nil
}

// apply pushes the current level to the engine without persisting.
// Used at startup to restore the stored level.
func (v *Volume) apply() error {
	return v.engine.SetVolume(v.level)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
