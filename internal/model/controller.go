package model

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// TransferWindowDuration is the length of the daily transfer window.
const TransferWindowDuration = 24 * time.Hour

// DailyTransferWindow tracks funds moved to protocols in the current window.
type DailyTransferWindow struct {
	WindowStart time.Time   `json:"window_start"`
	Transferred sdkmath.Int `json:"transferred"`
}

// Current returns the window as seen at now, rolled over when expired.
func (w DailyTransferWindow) Current(now time.Time) DailyTransferWindow {
	if w.WindowStart.IsZero() || now.Sub(w.WindowStart) >= TransferWindowDuration {
		return DailyTransferWindow{WindowStart: now, Transferred: sdkmath.ZeroInt()}
	}
	w.Transferred = OrZero(w.Transferred)
	return w
}

// ControllerState is the persisted state of the treasury controller.
type ControllerState struct {
	Paused   bool                `json:"paused"`
	PausedAt time.Time           `json:"paused_at"`
	PausedBy Address             `json:"paused_by"`
	Window   DailyTransferWindow `json:"window"`
}

// ControllerStatus is the read surface of the controller.
type ControllerStatus struct {
	Paused              bool        `json:"paused"`
	DailyLimitRemaining sdkmath.Int `json:"daily_limit_remaining"`
	DailyTransferred    sdkmath.Int `json:"daily_transferred"`
	WindowStart         time.Time   `json:"window_start"`
	MaxSingleTransfer   sdkmath.Int `json:"max_single_transfer"`
	DailyTransferLimit  sdkmath.Int `json:"daily_transfer_limit"`
	MaxBatchSize        int         `json:"max_batch_size"`
}
