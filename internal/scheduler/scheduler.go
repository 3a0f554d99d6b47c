package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/treasury"
)

// TokenMeta is display information for a listed token.
type TokenMeta struct {
	Symbol   string
	Decimals int32
}

// eventsShown is how many audit events /events returns.
const eventsShown = 15

// Scheduler manages all cron tasks and answers operator commands.
type Scheduler struct {
	Cron       *cron.Cron
	Controller *treasury.Controller
	Notifier   notifier.Notifier
	Recorder   recorder.Recorder
	Tokens     map[model.Address]TokenMeta
	Decimals   int32
	Ctx        context.Context

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, ctl *treasury.Controller, n notifier.Notifier, rec recorder.Recorder, tokens map[model.Address]TokenMeta, decimals int32) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Controller: ctl,
		Notifier:   n,
		Recorder:   rec,
		Tokens:     tokens,
		Decimals:   decimals,
		Ctx:        ctx,
		now:        time.Now,
	}
}

// RegisterAll registers the snapshot and daily report tasks.
func (s *Scheduler) RegisterAll(snapshotCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logging.Infof("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logging.Infof("scheduler stopped")
}

// RunSnapshotNow takes a token snapshot immediately.
func (s *Scheduler) RunSnapshotNow() {
	s.snapshotTask()
}

func (s *Scheduler) snapshotTask() {
	logging.Debugf("running snapshot task")
	lines, err := s.tokenLines()
	if err != nil {
		logging.Errorf("snapshot: %v", err)
		return
	}
	now := s.now()
	for _, l := range lines {
		if err := s.Recorder.RecordTokenSnapshot(&recorder.TokenSnapshot{
			Time:               now,
			Token:              l.Token.Address,
			Index:              l.Token.CurrentIndex,
			TotalDeposits:      l.Token.TotalDeposits,
			TotalStaked:        l.Token.TotalStaked,
			ProtocolRevenue:    l.Revenue.ProtocolRevenue,
			OperationFee:       l.Revenue.OperationFee,
			TotalClientRevenue: l.Revenue.TotalClientRevenue,
		}); err != nil {
			logging.Errorf("record snapshot %s: %v", l.Token.Address.Short(), err)
		}
	}
}

func (s *Scheduler) reportTask() {
	logging.Infof("running daily report")
	st, err := s.Controller.Status(s.Ctx)
	if err != nil {
		logging.Errorf("daily report status: %v", err)
		s.trySend(fmt.Sprintf("❌ Daily report failed: %v", err))
		return
	}
	if err := s.Recorder.RecordLimitUsage(&recorder.LimitUsage{
		Time:        s.now(),
		WindowStart: st.WindowStart,
		Transferred: st.DailyTransferred,
		Limit:       st.DailyTransferLimit,
		Paused:      st.Paused,
	}); err != nil {
		logging.Errorf("record limit usage: %v", err)
	}

	report := notifier.FormatStatus(st, s.Decimals)
	if lines, err := s.tokenLines(); err != nil {
		logging.Errorf("daily report tokens: %v", err)
	} else {
		report += "\n" + notifier.FormatTokens(lines)
	}
	s.trySend(report)
}

func (s *Scheduler) tokenLines() ([]notifier.TokenLine, error) {
	tokens, err := s.Controller.Tokens(s.Ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	lines := make([]notifier.TokenLine, 0, len(tokens))
	for _, tok := range tokens {
		rev, err := s.Controller.Revenue(s.Ctx, tok.Address)
		if err != nil {
			return nil, fmt.Errorf("revenue %s: %w", tok.Address.Short(), err)
		}
		meta, ok := s.Tokens[tok.Address]
		if !ok {
			meta.Decimals = s.Decimals
		}
		lines = append(lines, notifier.TokenLine{
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
			Token:    tok,
			Revenue:  rev,
		})
	}
	return lines, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	// Group chats address bots as /status@vault_bot.
	cmd, _, _ = strings.Cut(cmd, "@")
	switch cmd {
	case "/status":
		st, err := s.Controller.Status(s.Ctx)
		if err != nil {
			return fmt.Sprintf("❌ status: %v", err)
		}
		return notifier.FormatStatus(st, s.Decimals)
	case "/tokens":
		lines, err := s.tokenLines()
		if err != nil {
			return fmt.Sprintf("❌ tokens: %v", err)
		}
		return notifier.FormatTokens(lines)
	case "/events":
		events, err := s.Recorder.RecentEvents(eventsShown)
		if err != nil {
			return fmt.Sprintf("❌ events: %v", err)
		}
		return notifier.FormatEvents(events)
	case "/report":
		s.reportTask()
		return ""
	default:
		return "Available commands:\n• /status\n• /tokens\n• /events\n• /report"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := notifier.SendWithRetry(s.Ctx, s.Notifier, text, 3); err != nil {
		logging.Errorf("send notification: %v", err)
	}
}
