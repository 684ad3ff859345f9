package roi

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// EventKind is the kind of pointer event driving a selection.
type EventKind int

const (
	// Press begins the rectangle at the event point.
	Press EventKind = iota
	// Drag moves the opposite corner while the button is held.
	Drag
	// Release fixes the opposite corner and ends the selection.
	Release
	// Cancel aborts the selection.
	Cancel
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Drag:
		return "drag"
	case Release:
		return "release"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a single pointer event in frame coordinates.
type Event struct {
	Kind  EventKind
	Point image.Point
}

// Phase is the progress of a selection session.
type Phase int

const (
	// Idle means no button has been pressed yet.
	Idle Phase = iota
	// Dragging means the rectangle is being drawn.
	Dragging
	// Done means the rectangle was released and is final.
	Done
	// Cancelled means the user aborted.
	Cancelled
)

// Session is the state of one rectangle selection. The zero value is a new session.
type Session struct {
	Phase Phase
	Start image.Point
	End   image.Point
}

// Finished reports whether the session reached a terminal phase.
func (s Session) Finished() bool {
	return s.Phase == Done || s.Phase == Cancelled
}

// Transition applies one event and returns the new session. Terminal sessions
// ignore further events, as do drags and releases that arrive before a press.
func Transition(s Session, ev Event) Session {
	if s.Finished() {
		return s
	}

	switch ev.Kind {
	case Cancel:
		s.Phase = Cancelled
	case Press:
		s.Phase = Dragging
		s.Start = ev.Point
		s.End = ev.Point
	case Drag:
		if s.Phase == Dragging {
			s.End = ev.Point
		}
	case Release:
		if s.Phase == Dragging {
			s.End = ev.Point
			s.Phase = Done
		}
	}
	return s
}

// Fold applies events in order until the session finishes.
func Fold(events []Event) Session {
	var s Session
	for _, ev := range events {
		s = Transition(s, ev)
		if s.Finished() {
			break
		}
	}
	return s
}

// ROI returns the selected rectangle of a finished session.
//
// Returns:
//   - ROI: The normalized rectangle.
//   - error: ErrSelectionCancelled or ErrSelectionIncomplete when there is no rectangle.
func (s Session) ROI() (ROI, error) {
	switch s.Phase {
	case Done:
		return FromPoints(s.Start, s.End), nil
	case Cancelled:
		return ROI{}, ErrSelectionCancelled
	default:
		return ROI{}, errors.Wrapf(ErrSelectionIncomplete, "session stopped in phase %d", s.Phase)
	}
}

// FromEvents folds an event stream into a usable ROI within bounds.
//
// Arguments:
//   - events: The ordered pointer events.
//   - bounds: The bounds of the frame the events refer to.
//
// Returns:
//   - ROI: The normalized and clamped rectangle.
//   - error: ErrSelectionCancelled, ErrSelectionIncomplete or ErrDegenerateROI.
func FromEvents(events []Event, bounds image.Rectangle) (ROI, error) {
	r, err := Fold(events).ROI()
	if err != nil {
		return ROI{}, err
	}
	return Resolve(r, bounds)
}
