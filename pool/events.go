package pool

import (
	"fmt"
	"time"
)

// EventKind names the state change an Event reports.
type EventKind int

const (
	EventPeerJoined EventKind = iota + 1
	EventPeerLeft
	EventWorkAssigned
	EventWorkCompleted
	EventCompletionDiscarded
	EventWorkReleased
	EventLedgerFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPeerJoined:
		return "peer_joined"
	case EventPeerLeft:
		return "peer_left"
	case EventWorkAssigned:
		return "work_assigned"
	case EventWorkCompleted:
		return "work_completed"
	case EventCompletionDiscarded:
		return "completion_discarded"
	case EventWorkReleased:
		return "work_released"
	case EventLedgerFailed:
		return "ledger_failed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is emitted to observers after every state change of the engine.
type Event struct {
	Kind EventKind
	At   time.Time
	Peer string

	// Units is the number of units the change was about: assigned, reported
	// finished, abandoned on leave or released.
	Units int
	// Outstanding is the number of units still assigned to the peer afterwards.
	Outstanding int
	// Power is the measure of the peer's power for join and leave events.
	Power uint64

	TotalPower    uint64
	TotalWorkload int
	Peers         int
	BusyPeers     int

	// Err is set for EventLedgerFailed.
	Err error
}

// Observer receives engine events. Observers are called synchronously, outside
// the engine lock, in the order the changes happened on the calling goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
