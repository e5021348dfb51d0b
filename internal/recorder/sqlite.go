package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"SettlementEngine/internal/model"
)

// SQLiteRecorder persists settlement output to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so reporting readers do not block the settlement writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transfers (
			id          TEXT PRIMARY KEY,
			recorded_at INTEGER NOT NULL,
			tick        INTEGER NOT NULL,
			market      TEXT NOT NULL,
			tx_type     TEXT NOT NULL,
			debit_id    TEXT NOT NULL,
			credit_id   TEXT NOT NULL,
			quantity    INTEGER NOT NULL,
			price       INTEGER NOT NULL,
			currency    TEXT NOT NULL,
			metadata    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_tick ON transfers(tick)`,

		`CREATE TABLE IF NOT EXISTS integrity_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			tick        INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			debit_id    TEXT,
			credit_id   TEXT,
			amount      INTEGER,
			currency    TEXT,
			detail      TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS m2_audits (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at   INTEGER NOT NULL,
			tick          INTEGER NOT NULL,
			currency      TEXT NOT NULL,
			gross_cash    INTEGER,
			bank_reserves INTEGER,
			deposits      INTEGER,
			escrow_cash   INTEGER,
			total         INTEGER,
			expected      INTEGER,
			ok            INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_m2_tick ON m2_audits(tick)`,

		`CREATE TABLE IF NOT EXISTS escrow_closures (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			tick        INTEGER NOT NULL,
			deceased_id TEXT NOT NULL,
			status      TEXT NOT NULL,
			written_off TEXT,
			assets      INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTransfer(rec model.TransferRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	md, err := json.Marshal(rec.Metadata())
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO transfers
		(id, recorded_at, tick, market, tx_type, debit_id, credit_id, quantity, price, currency, metadata)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID().String(), time.Now().Unix(), rec.Tick(), rec.Market(), string(rec.Type()),
		string(rec.DebitID()), string(rec.CreditID()), rec.Quantity(), rec.Price(),
		string(rec.Currency()), string(md),
	)
	return err
}

func (r *SQLiteRecorder) RecordIntegrity(evt *IntegrityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO integrity_events
		(recorded_at, tick, kind, debit_id, credit_id, amount, currency, detail)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Tick, evt.Kind, string(evt.DebitID), string(evt.CreditID),
		evt.Amount, string(evt.Currency), evt.Detail,
	)
	return err
}

func (r *SQLiteRecorder) RecordAudit(evt *AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expected sql.NullInt64
	if evt.Expected != nil {
		expected = sql.NullInt64{Int64: *evt.Expected, Valid: true}
	}
	rep := evt.Report
	_, err := r.db.Exec(`INSERT INTO m2_audits
		(recorded_at, tick, currency, gross_cash, bank_reserves, deposits, escrow_cash, total, expected, ok)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Tick, string(rep.Currency),
		rep.GrossCash, rep.BankReserves, rep.Deposits, rep.EscrowCash, rep.Total,
		expected, evt.OK,
	)
	return err
}

func (r *SQLiteRecorder) RecordEscrowClosure(evt *EscrowClosure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wo, err := json.Marshal(evt.WrittenOff)
	if err != nil {
		return fmt.Errorf("marshal written off: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO escrow_closures
		(recorded_at, tick, deceased_id, status, written_off, assets)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Tick, string(evt.DeceasedID), evt.Status, string(wo), evt.Assets,
	)
	return err
}

// RecentTransfers returns the newest transfers first.
func (r *SQLiteRecorder) RecentTransfers(limit int) ([]TransferRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, tick, tx_type, debit_id, credit_id, quantity, currency, metadata
		FROM transfers ORDER BY tick DESC, recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []TransferRow
	for rows.Next() {
		var (
			row TransferRow
			md  sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.Tick, &row.Type, &row.DebitID, &row.CreditID,
			&row.Amount, &row.Currency, &md); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if md.Valid {
			var m map[string]any
			if err := json.Unmarshal([]byte(md.String), &m); err == nil {
				row.Memo, _ = m["memo"].(string)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
