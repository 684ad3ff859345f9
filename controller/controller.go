// Package controller - This file contains the stability controller that decides
// when a settled scene should be captured.
package controller

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidThresholds is returned when the hysteresis thresholds cannot form a dead zone.
var ErrInvalidThresholds = errors.New("invalid stability thresholds")

// State is the stability state of a detection run.
type State int

const (
	// WarmingUp is the initial state while the background model builds history.
	WarmingUp State = iota
	// Unstable means the current scene has not been captured yet.
	Unstable
	// StableCaptured means the settled scene was captured and the controller
	// waits for the next change before arming again.
	StableCaptured
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case WarmingUp:
		return "warming_up"
	case Unstable:
		return "unstable"
	case StableCaptured:
		return "stable_captured"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ThresholdConfig is a configuration for the thresholds.
type ThresholdConfig struct {
	// MinPercent is the foreground percentage below which motion is considered stopped.
	MinPercent float64
	// MaxPercent is the foreground percentage at or above which motion is active again.
	MaxPercent float64
	// WarmupFrames is the number of initial frames that never produce a capture.
	WarmupFrames int
}

// Validate checks that the thresholds describe a usable dead zone.
//
// Returns:
//   - error: ErrInvalidThresholds when MinPercent >= MaxPercent, a bound is
//     negative, or WarmupFrames is negative.
func (c ThresholdConfig) Validate() error {
	if c.MinPercent < 0 || c.MaxPercent < 0 {
		return errors.Wrapf(ErrInvalidThresholds, "percentages must be >= 0 (min=%v, max=%v)", c.MinPercent, c.MaxPercent)
	}
	if c.MinPercent >= c.MaxPercent {
		return errors.Wrapf(ErrInvalidThresholds, "min %v must be below max %v", c.MinPercent, c.MaxPercent)
	}
	if c.WarmupFrames < 0 {
		return errors.Wrapf(ErrInvalidThresholds, "warmup frames must be >= 0, got %d", c.WarmupFrames)
	}
	return nil
}

// Decision is the outcome of feeding one frame's foreground ratio to the controller.
type Decision struct {
	// Frame is the 1-based count of frames seen by the controller.
	Frame int
	// State is the state after this frame was applied.
	State State
	// Capture is true when this frame should be persisted.
	Capture bool
	// Ordinal is the capture ordinal, only meaningful when Capture is true.
	Ordinal int
	// Rearmed is true when this frame moved the controller from StableCaptured to Unstable.
	Rearmed bool
}

// Controller is a two-threshold hysteresis machine over the foreground ratio.
// One Controller serves exactly one detection run and is not safe for
// concurrent use.
type Controller struct {
	Thresholds ThresholdConfig
	state      State
	frames     int
	captures   int
}

// New creates a controller in the WarmingUp state.
//
// Arguments:
//   - thresholds: The hysteresis thresholds and warm-up length.
//
// Returns:
//   - *Controller: The initialized controller.
//   - error: An error if the thresholds are invalid.
func New(thresholds ThresholdConfig) (*Controller, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Controller{Thresholds: thresholds, state: WarmingUp}, nil
}

// Decide applies the foreground ratio of the next frame.
//
// The frame that ends the warm-up period is already evaluated as Unstable, so
// with WarmupFrames=3 the earliest possible capture is frame 4.
//
// Arguments:
//   - ratio: The foreground percentage of the frame (0..100).
//
// Returns:
//   - Decision: The state after the frame and whether it must be captured.
func (rc *Controller) Decide(ratio float64) Decision {
	rc.frames++
	d := Decision{Frame: rc.frames}

	if rc.state == WarmingUp {
		if rc.frames <= rc.Thresholds.WarmupFrames {
			d.State = WarmingUp
			return d
		}
		rc.state = Unstable
	}

	switch rc.state {
	case Unstable:
		if ratio < rc.Thresholds.MinPercent {
			d.Capture = true
			d.Ordinal = rc.captures
			rc.captures++
			rc.state = StableCaptured
		}
	case StableCaptured:
		if ratio >= rc.Thresholds.MaxPercent {
			d.Rearmed = true
			rc.state = Unstable
		}
	}

	d.State = rc.state
	return d
}

// State returns the current state.
func (rc *Controller) State() State {
	return rc.state
}

// Captures returns the number of captures decided so far.
func (rc *Controller) Captures() int {
	return rc.captures
}

// Frames returns the number of frames applied so far.
func (rc *Controller) Frames() int {
	return rc.frames
}
