package models

import "time"

// PaymentMethod names a supported e-wallet.
type PaymentMethod string

const (
	PaymentMethodGCash   PaymentMethod = "gcash"
	PaymentMethodPayMaya PaymentMethod = "paymaya"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodGCash || m == PaymentMethodPayMaya
}

// QRCode holds the current payment QR images. There is at most one row.
type QRCode struct {
	ID        int       `db:"id" json:"id"`
	GCash     *string   `db:"gcash" json:"gcash,omitempty"`
	PayMaya   *string   `db:"paymaya" json:"paymaya,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// URLFor returns the stored image for method, if any.
func (q *QRCode) URLFor(method PaymentMethod) *string {
	if q == nil {
		return nil
	}
	switch method {
	case PaymentMethodGCash:
		return q.GCash
	case PaymentMethodPayMaya:
		return q.PayMaya
	}
	return nil
}
