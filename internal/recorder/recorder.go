package recorder

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"YieldVault/internal/model"
)

// EventType names an audited operation.
type EventType string

const (
	EventDeposit         EventType = "DEPOSIT"
	EventWithdraw        EventType = "WITHDRAW"
	EventTransfer        EventType = "TRANSFER"
	EventUnstake         EventType = "UNSTAKE"
	EventHarvest         EventType = "HARVEST"
	EventIndexUpdate     EventType = "INDEX_UPDATE"
	EventTierInit        EventType = "TIER_INIT"
	EventTierIndexUpdate EventType = "TIER_INDEX_UPDATE"
	EventClaim           EventType = "CLAIM"
	EventPause           EventType = "PAUSE"
	EventUnpause         EventType = "UNPAUSE"
	EventTokenAdded      EventType = "TOKEN_ADDED"
	EventTokenRemoved    EventType = "TOKEN_REMOVED"
	EventProtocol        EventType = "PROTOCOL"
	EventRole            EventType = "ROLE"
)

// Event is one committed ledger or controller operation.
type Event struct {
	ID       string
	Time     time.Time
	Type     EventType
	Actor    model.Address
	ClientID model.ID
	UserID   model.ID
	Token    model.Address
	Amount   sdkmath.Int
	Fee      sdkmath.Int
	Note     string
}

// NewEvent stamps a new event with a fresh id.
func NewEvent(typ EventType, at time.Time, actor model.Address) *Event {
	return &Event{
		ID:     uuid.NewString(),
		Time:   at,
		Type:   typ,
		Actor:  actor,
		Amount: sdkmath.ZeroInt(),
		Fee:    sdkmath.ZeroInt(),
	}
}

// TokenSnapshot is the periodic state of one token.
type TokenSnapshot struct {
	Time               time.Time
	Token              model.Address
	Index              sdkmath.Int
	TotalDeposits      sdkmath.Int
	TotalStaked        sdkmath.Int
	ProtocolRevenue    sdkmath.Int
	OperationFee       sdkmath.Int
	TotalClientRevenue sdkmath.Int
}

// LimitUsage is the daily transfer window as seen by the report job.
type LimitUsage struct {
	Time        time.Time
	WindowStart time.Time
	Transferred sdkmath.Int
	Limit       sdkmath.Int
	Paused      bool
}

// Recorder persists the audit trail for analysis.
type Recorder interface {
	RecordEvent(evt *Event) error
	RecordTokenSnapshot(snap *TokenSnapshot) error
	RecordLimitUsage(u *LimitUsage) error
	RecentEvents(limit int) ([]Event, error)
	Close() error
}
