package notifier

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
)

// TokenLine is one row of the token report.
type TokenLine struct {
	Symbol   string
	Decimals int32
	Token    model.Token
	Revenue  model.RevenueBalances
}

// FormatAmount renders base units as a decimal amount with thousands
// separators and two fraction digits, truncated.
func FormatAmount(amount sdkmath.Int, decimals int32) string {
	d := decimal.NewFromBigInt(model.OrZero(amount).BigInt(), -decimals).Truncate(2)
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return d.StringFixed(2)
	}
	out := humanize.BigComma(n) + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatIndex renders a 1e18 fixed-point index with six decimals.
func FormatIndex(idx sdkmath.Int) string {
	return decimal.NewFromBigInt(model.OrZero(idx).BigInt(), -model.IndexDecimals).StringFixed(6)
}

// FormatPauseAlert announces an emergency pause.
func FormatPauseAlert(by model.Address, at time.Time) string {
	var b strings.Builder
	b.WriteString("🚨 <b>YieldVault paused</b>\n\n")
	b.WriteString(fmt.Sprintf("Guardian: <code>%s</code>\n", by))
	b.WriteString(fmt.Sprintf("Time: %s\n", at.UTC().Format("2006-01-02 15:04:05 MST")))
	b.WriteString("Deposits, withdrawals, transfers and index updates are halted until an admin unpauses.")
	return b.String()
}

// FormatUnpauseAlert announces that operations resumed.
func FormatUnpauseAlert(by model.Address, at time.Time) string {
	return fmt.Sprintf("✅ <b>YieldVault resumed</b>\n\nAdmin: <code>%s</code>\nTime: %s",
		by, at.UTC().Format("2006-01-02 15:04:05 MST"))
}

// FormatLimitAlert warns that the daily transfer window is nearly used up.
func FormatLimitAlert(s model.ControllerStatus, decimals int32) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>Daily transfer limit</b>\n\n")
	b.WriteString(fmt.Sprintf("Used: %s / %s (%s)\n",
		FormatAmount(s.DailyTransferred, decimals), FormatAmount(s.DailyTransferLimit, decimals), usedPercent(s)))
	b.WriteString(fmt.Sprintf("Remaining: %s\n", FormatAmount(s.DailyLimitRemaining, decimals)))
	b.WriteString(fmt.Sprintf("Window resets: %s\n", s.WindowStart.Add(model.TransferWindowDuration).UTC().Format("2006-01-02 15:04 MST")))
	return b.String()
}

// FormatStatus renders the controller status for the /status command.
func FormatStatus(s model.ControllerStatus, decimals int32) string {
	var b strings.Builder
	b.WriteString("📦 <b>Controller status</b>\n\n")
	state := "active"
	if s.Paused {
		state = "PAUSED"
	}
	b.WriteString(fmt.Sprintf("State: %s\n", state))
	b.WriteString(fmt.Sprintf("Max single transfer: %s\n", FormatAmount(s.MaxSingleTransfer, decimals)))
	b.WriteString(fmt.Sprintf("Daily limit: %s\n", FormatAmount(s.DailyTransferLimit, decimals)))
	b.WriteString(fmt.Sprintf("Used today: %s (%s)\n", FormatAmount(s.DailyTransferred, decimals), usedPercent(s)))
	b.WriteString(fmt.Sprintf("Remaining: %s\n", FormatAmount(s.DailyLimitRemaining, decimals)))
	b.WriteString(fmt.Sprintf("Max batch size: %d\n", s.MaxBatchSize))
	if !s.WindowStart.IsZero() {
		b.WriteString(fmt.Sprintf("Window start: %s\n", s.WindowStart.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatTokens renders the per-token report for the /tokens command.
func FormatTokens(lines []TokenLine) string {
	if len(lines) == 0 {
		return "No tokens listed."
	}
	var b strings.Builder
	b.WriteString("🪙 <b>Tokens</b>\n")
	for _, l := range lines {
		name := l.Symbol
		if name == "" {
			name = l.Token.Address.Short()
		}
		status := ""
		if !l.Token.Supported {
			status = " (delisted)"
		}
		b.WriteString(fmt.Sprintf("\n<b>%s</b>%s\n", name, status))
		b.WriteString(fmt.Sprintf("  Index: %s\n", FormatIndex(l.Token.CurrentIndex)))
		b.WriteString(fmt.Sprintf("  Deposits (shares): %s\n", FormatAmount(l.Token.TotalDeposits, l.Decimals)))
		b.WriteString(fmt.Sprintf("  Staked: %s\n", FormatAmount(l.Token.TotalStaked, l.Decimals)))
		b.WriteString(fmt.Sprintf("  Protocol revenue: %s\n", FormatAmount(l.Revenue.ProtocolRevenue, l.Decimals)))
		b.WriteString(fmt.Sprintf("  Client revenue: %s\n", FormatAmount(l.Revenue.TotalClientRevenue, l.Decimals)))
		b.WriteString(fmt.Sprintf("  Operation fees: %s\n", FormatAmount(l.Revenue.OperationFee, l.Decimals)))
	}
	return b.String()
}

// FormatEvents renders recent audit events for the /events command.
func FormatEvents(events []recorder.Event) string {
	if len(events) == 0 {
		return "No events recorded."
	}
	var b strings.Builder
	b.WriteString("📜 <b>Recent events</b>\n\n")
	for _, e := range events {
		b.WriteString(fmt.Sprintf("%s %s", e.Time.UTC().Format("01-02 15:04"), e.Type))
		if !e.Token.IsZero() {
			b.WriteString(" " + e.Token.Short())
		}
		if model.OrZero(e.Amount).IsPositive() {
			b.WriteString(" " + e.Amount.String())
		}
		if e.Note != "" {
			b.WriteString(" · " + e.Note)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func usedPercent(s model.ControllerStatus) string {
	limit := model.OrZero(s.DailyTransferLimit)
	if !limit.IsPositive() {
		return "n/a"
	}
	pct := decimal.NewFromBigInt(model.OrZero(s.DailyTransferred).BigInt(), 0).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromBigInt(limit.BigInt(), 0))
	return pct.StringFixed(1) + "%"
}
