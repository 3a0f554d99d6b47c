package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	_ "modernc.org/sqlite"

	"YieldVault/internal/logging"
	"YieldVault/internal/model"
)

// SQLiteRecorder persists the audit trail to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logging.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			actor      TEXT,
			client_id  TEXT,
			user_id    TEXT,
			token      TEXT,
			amount     TEXT,
			fee        TEXT,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON ledger_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS token_snapshots (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp            INTEGER NOT NULL,
			token                TEXT NOT NULL,
			vault_index          TEXT,
			total_deposits       TEXT,
			total_staked         TEXT,
			protocol_revenue     TEXT,
			operation_fee        TEXT,
			total_client_revenue TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON token_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS limit_usage (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			window_start INTEGER,
			transferred  TEXT,
			daily_limit  TEXT,
			paused       INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvent(evt *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ledger_events
		(id, timestamp, event_type, actor, client_id, user_id, token, amount, fee, note)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.Time.Unix(), string(evt.Type), evt.Actor.String(),
		idText(evt.ClientID), idText(evt.UserID), addrText(evt.Token),
		model.OrZero(evt.Amount).String(), model.OrZero(evt.Fee).String(), evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordTokenSnapshot(snap *TokenSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO token_snapshots
		(timestamp, token, vault_index, total_deposits, total_staked,
		 protocol_revenue, operation_fee, total_client_revenue)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.Time.Unix(), snap.Token.String(),
		model.OrZero(snap.Index).String(), model.OrZero(snap.TotalDeposits).String(),
		model.OrZero(snap.TotalStaked).String(), model.OrZero(snap.ProtocolRevenue).String(),
		model.OrZero(snap.OperationFee).String(), model.OrZero(snap.TotalClientRevenue).String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordLimitUsage(u *LimitUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO limit_usage
		(timestamp, window_start, transferred, daily_limit, paused)
		VALUES (?,?,?,?,?)`,
		u.Time.Unix(), u.WindowStart.Unix(),
		model.OrZero(u.Transferred).String(), model.OrZero(u.Limit).String(), u.Paused,
	)
	return err
}

// RecentEvents returns up to limit events, newest first.
func (r *SQLiteRecorder) RecentEvents(limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, event_type, actor, client_id, user_id, token, amount, fee, note
		FROM ledger_events ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			evt                                   Event
			ts                                    int64
			typ, actor, client, user, token, note string
			amount, fee                           string
		)
		if err := rows.Scan(&evt.ID, &ts, &typ, &actor, &client, &user, &token, &amount, &fee, &note); err != nil {
			return nil, err
		}
		evt.Time = time.Unix(ts, 0).UTC()
		evt.Type = EventType(typ)
		evt.Note = note
		evt.Actor, _ = model.ParseAddress(actor)
		if client != "" {
			evt.ClientID, _ = model.ParseID(client)
		}
		if user != "" {
			evt.UserID, _ = model.ParseID(user)
		}
		if token != "" {
			evt.Token, _ = model.ParseAddress(token)
		}
		evt.Amount = parseInt(amount)
		evt.Fee = parseInt(fee)
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logging.Infof("closing sqlite recorder")
	return r.db.Close()
}

func idText(id model.ID) string {
	if id.IsZero() {
		return ""
	}
	return id.String()
}

func addrText(a model.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}

func parseInt(s string) sdkmath.Int {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt()
	}
	return v
}
