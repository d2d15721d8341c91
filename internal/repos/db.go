package repos

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	// :memory: databases are per-connection in sqlite
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Key/value entries (persisted carts)
CREATE TABLE IF NOT EXISTS kv_entries(
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  updated_at TEXT
);

-- Receipts of confirmed reservations
CREATE TABLE IF NOT EXISTS receipts(
  confirmation_id INTEGER PRIMARY KEY,
  session_key TEXT NOT NULL DEFAULT '',
  file_name TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  total TEXT NOT NULL,
  body BLOB NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_receipts_created_at ON receipts(created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	// receipts archived before ownership was recorded belong to nobody
	var hasOwner int
	if err := db.Get(&hasOwner, `SELECT COUNT(*) FROM pragma_table_info('receipts') WHERE name = 'session_key'`); err != nil {
		return err
	}
	if hasOwner == 0 {
		if _, err := db.Exec(`ALTER TABLE receipts ADD COLUMN session_key TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_receipts_session ON receipts(session_key, created_at)`)
	return err
}
