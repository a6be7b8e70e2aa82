package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const PaymentStatusSuccess = "success"

// ChargeRequest asks the gateway to start a checkout.
type ChargeRequest struct {
	Reference   string
	AmountMinor int64
	Email       string
	Name        string
	CallbackURL string
}

// Authorization is where the payer completes the checkout.
type Authorization struct {
	URL        string
	AccessCode string
	Reference  string
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	Status      string
	Reference   string
	AmountMinor int64
	Currency    string
	PaidAt      *time.Time
}

func (v Verification) Succeeded() bool {
	return v.Status == PaymentStatusSuccess
}

// ToMinorUnits converts an amount to kobo/cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// PaymentWebhook is the subset of a gateway webhook the service acts on.
type PaymentWebhook struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}
