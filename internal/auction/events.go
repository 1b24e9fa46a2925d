package auction

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names the eight state transitions the engine can emit
// (spec §6).
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventExtended  EventKind = "extended"
	EventBid       EventKind = "bid"
	EventRetracted EventKind = "retracted"
	EventConfirmed EventKind = "confirmed"
	EventCancelled EventKind = "cancelled"
	EventDisputed  EventKind = "disputed"
	EventArbitrated EventKind = "arbitrated"
)

// Event is emitted after every command that mutates auction state. The
// Data field holds one of the Created/Extended/... payload structs below,
// matching Kind.
type Event struct {
	ID          string
	Kind        EventKind
	AuctionKey  AuctionKey
	BlockHeight uint64
	Timestamp   time.Time
	Data        interface{}
}

// CreatedData is the payload of an EventCreated event.
type CreatedData struct {
	Arbitrator    AccountID
	Bounty        uint64
	Deposit       uint64
	InitialBlock  uint64
	TerminalBlock uint64
}

// ExtendedData is the payload of an EventExtended event.
type ExtendedData struct {
	Bounty        uint64
	TerminalBlock uint64
}

// BidData is the payload of an EventBid event.
type BidData struct {
	BidKey BidKey
	Price  uint64
}

// RetractedData is the payload of an EventRetracted event. BidKey
// refers to the new top; it is the sentinel if the stack is now empty.
type RetractedData struct {
	BidKey BidKey
	Price  uint64
}

// ConfirmedData is the payload of an EventConfirmed event.
type ConfirmedData struct {
	BidKey BidKey
	Price  uint64
}

// CancelledData is the payload of an EventCancelled event.
type CancelledData struct {
	PenalizedBidder AccountID
}

// DisputedData is the payload of an EventDisputed event.
type DisputedData struct {
	Bidder AccountID
}

// ArbitratedData is the payload of an EventArbitrated event.
type ArbitratedData struct {
	Fulfilled bool
}

// EventHandler receives engine events. Handlers run concurrently with
// each other and with the command that triggered them; they must not
// block the caller.
type EventHandler func(event Event)

func newEvent(kind EventKind, key AuctionKey, height uint64, data interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		AuctionKey:  key,
		BlockHeight: height,
		Timestamp:   time.Now(),
		Data:        data,
	}
}

// OnEvent registers a handler that is called for every event the engine
// emits. Handlers registered here see events from all auctions.
func (e *Engine) OnEvent(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventHandlers = append(e.eventHandlers, handler)
}

// emitEvent fires ev to every registered handler on its own goroutine.
// Callers must already hold e.mu.
func (e *Engine) emitEvent(ev Event) {
	handlers := make([]EventHandler, len(e.eventHandlers))
	copy(handlers, e.eventHandlers)
	for _, handler := range handlers {
		go handler(ev)
	}
}
