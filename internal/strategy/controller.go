// Package strategy adjusts filtering strictness in response to the accuracy
// trend, with hysteresis so a single noisy session never flips the level.
package strategy

import (
	"time"

	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/model"
)

// Signal counts required before the controller acts. Tightening reacts
// faster than relaxing: a falling precision trend costs the user noise
// immediately, while relaxing too early just brings the noise back.
const (
	tightenAfter = 2
	relaxAfter   = 3
)

// Controller applies trend signals to the persisted strategy state.
type Controller struct{}

// NewController creates a Controller.
func NewController() *Controller {
	return &Controller{}
}

// Observe folds one accuracy direction signal into the state and returns the
// updated state. A flat signal resets the consecutive counter. A transition
// also resets it, so each level change requires a fresh run of consistent
// signals.
func (c *Controller) Observe(state model.StrategyState, dir model.Direction, now time.Time) model.StrategyState {
	next := state
	next.Version++

	if dir == model.DirectionFlat {
		next.ConsecutiveSignals = 0
		next.LastDirection = model.DirectionFlat
		return next
	}

	if dir == state.LastDirection {
		next.ConsecutiveSignals = state.ConsecutiveSignals + 1
	} else {
		next.ConsecutiveSignals = 1
	}
	next.LastDirection = dir

	switch {
	case dir == model.DirectionDegrading && next.ConsecutiveSignals >= tightenAfter:
		c.transition(&next, state.Current.Tighten(), now)
	case dir == model.DirectionImproving && next.ConsecutiveSignals >= relaxAfter &&
		state.Current.Level() > model.StrictnessLenient.Level():
		c.transition(&next, state.Current.Relax(), now)
	}
	return next
}

func (c *Controller) transition(state *model.StrategyState, to model.Strictness, now time.Time) {
	state.ConsecutiveSignals = 0
	if to == state.Current {
		return
	}
	zap.L().Info("strictness change",
		zap.String("from", string(state.Current)),
		zap.String("to", string(to)),
	)
	state.Current = to
	state.LastChangedAt = now.UTC()
}
