package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ReceiptRepo struct{ db *sqlx.DB }

func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo { return &ReceiptRepo{db: db} }

type ReceiptRow struct {
	ConfirmationID int64  `db:"confirmation_id"`
	FileName       string `db:"file_name"`
	CustomerName   string `db:"customer_name"`
	CustomerID     string `db:"customer_id"`
	Total          string `db:"total"`
	Body           []byte `db:"body"`
	CreatedAt      string `db:"created_at"`
}

// ReceiptSummary omits the document body (used by listings).
type ReceiptSummary struct {
	ConfirmationID int64  `db:"confirmation_id" json:"confirmationId"`
	FileName       string `db:"file_name" json:"fileName"`
	CustomerName   string `db:"customer_name" json:"customerName"`
	Total          string `db:"total" json:"total"`
	CreatedAt      string `db:"created_at" json:"createdAt"`
}

// Save archives a rendered receipt for owner (a SessionKey). Re-saving an id
// replaces the document.
func (r *ReceiptRepo) Save(ctx context.Context, owner string, id int64, fileName, customerName, customerID string, total decimal.Decimal, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO receipts(confirmation_id, session_key, file_name, customer_name, customer_id, total, body, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(confirmation_id) DO UPDATE SET
	    session_key = excluded.session_key,
	    file_name = excluded.file_name,
	    customer_name = excluded.customer_name,
	    customer_id = excluded.customer_id,
	    total = excluded.total,
	    body = excluded.body
	`, id, owner, fileName, customerName, customerID, total.StringFixed(2), body)
	return err
}

// Get returns sql.ErrNoRows when the receipt is unknown or belongs to
// another owner.
func (r *ReceiptRepo) Get(ctx context.Context, owner string, id int64) (ReceiptRow, error) {
	var row ReceiptRow
	err := r.db.GetContext(ctx, &row, `
	  SELECT confirmation_id, file_name, customer_name, customer_id,
	         CAST(total AS TEXT) AS total, body, COALESCE(created_at,'') AS created_at
	  FROM receipts
	  WHERE confirmation_id = ? AND session_key = ? AND session_key <> ''
	`, id, owner)
	return row, err
}

// ListLatest returns owner's receipts, newest first.
func (r *ReceiptRepo) ListLatest(ctx context.Context, owner string, limit int) ([]ReceiptSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []ReceiptSummary{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT confirmation_id, file_name, customer_name,
	         CAST(total AS TEXT) AS total, COALESCE(created_at,'') AS created_at
	  FROM receipts
	  WHERE session_key = ? AND session_key <> ''
	  ORDER BY datetime(created_at) DESC, confirmation_id DESC
	  LIMIT ?
	`, owner, limit)
	return out, err
}
