package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

// QRCodeRepository stores the singleton payment QR row.
type QRCodeRepository struct {
	db *sqlx.DB
}

// NewQRCodeRepository creates the repository.
func NewQRCodeRepository(db *sqlx.DB) *QRCodeRepository {
	return &QRCodeRepository{db: db}
}

// Get returns the stored QR codes or sql.ErrNoRows when none were uploaded.
func (r *QRCodeRepository) Get(ctx context.Context) (*models.QRCode, error) {
	const query = `SELECT id, gcash, paymaya, updated_at FROM qr_codes WHERE id = 1`
	var qr models.QRCode
	if err := r.db.GetContext(ctx, &qr, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get qr codes: %w", err)
	}
	return &qr, nil
}

// SetURL stores url for method, creating the row on first use.
func (r *QRCodeRepository) SetURL(ctx context.Context, method models.PaymentMethod, url string, at time.Time) (*models.QRCode, error) {
	var query string
	switch method {
	case models.PaymentMethodGCash:
		query = `INSERT INTO qr_codes (id, gcash, updated_at) VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET gcash = EXCLUDED.gcash, updated_at = EXCLUDED.updated_at
RETURNING id, gcash, paymaya, updated_at`
	case models.PaymentMethodPayMaya:
		query = `INSERT INTO qr_codes (id, paymaya, updated_at) VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET paymaya = EXCLUDED.paymaya, updated_at = EXCLUDED.updated_at
RETURNING id, gcash, paymaya, updated_at`
	default:
		return nil, fmt.Errorf("set qr code: unsupported payment method %q", method)
	}
	var qr models.QRCode
	if err := r.db.GetContext(ctx, &qr, query, url, at); err != nil {
		return nil, fmt.Errorf("set qr code: %w", err)
	}
	return &qr, nil
}
