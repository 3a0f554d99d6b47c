package model

import "time"

// Client is a tenant of the platform and its fee configuration.
type Client struct {
	ID                    ID         `json:"id"`
	Owner                 Address    `json:"owner"`
	Name                  string     `json:"name"`
	Active                bool       `json:"active"`
	ServiceFeeBps         uint32     `json:"service_fee_bps"`
	ClientRevenueShareBps uint32     `json:"client_revenue_share_bps"`
	RiskTiers             []RiskTier `json:"risk_tiers"`
	RegisteredAt          time.Time  `json:"registered_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// RiskTier is a client's named sub-allocation to a yield strategy.
type RiskTier struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	AllocationBps uint32 `json:"allocation_bps"`
	Active        bool   `json:"active"`
}

// Tier returns the tier with the given id.
func (c *Client) Tier(id ID) (RiskTier, int, bool) {
	for i, t := range c.RiskTiers {
		if t.ID == id {
			return t, i, true
		}
	}
	return RiskTier{}, -1, false
}

// ActiveAllocationBps sums the allocation of active tiers.
func ActiveAllocationBps(tiers []RiskTier) uint64 {
	var sum uint64
	for _, t := range tiers {
		if t.Active {
			sum += uint64(t.AllocationBps)
		}
	}
	return sum
}
