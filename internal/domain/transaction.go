package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionDirection is INBOUND or OUTBOUND relative to the customer
type TransactionDirection string

const (
	DirectionInbound  TransactionDirection = "INBOUND"
	DirectionOutbound TransactionDirection = "OUTBOUND"
)

// ParseDirection validates a stored transaction direction
func ParseDirection(s string) (TransactionDirection, error) {
	switch d := TransactionDirection(s); d {
	case DirectionInbound, DirectionOutbound:
		return d, nil
	}
	return "", &InvariantError{Field: "direction", Value: s}
}

// PaymentMethod is how value moved
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCrypto PaymentMethod = "CRYPTO"
	PaymentWire   PaymentMethod = "WIRE"
	PaymentCard   PaymentMethod = "CARD"
	PaymentACH    PaymentMethod = "ACH"
)

// ParsePaymentMethod validates a stored payment method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCash, PaymentCrypto, PaymentWire, PaymentCard, PaymentACH:
		return m, nil
	}
	return "", &InvariantError{Field: "payment_method", Value: s}
}

// FinancialTransaction is one historical customer transaction
type FinancialTransaction struct {
	ID                 uuid.UUID            `json:"id" db:"id"`
	CustomerID         string               `json:"customer_id" db:"customer_id"`
	Amount             decimal.Decimal      `json:"amount" db:"amount"`
	Currency           string               `json:"currency" db:"currency"`
	Direction          TransactionDirection `json:"direction" db:"direction"`
	PaymentMethod      PaymentMethod        `json:"payment_method" db:"payment_method"`
	SourceCountry      string               `json:"source_country,omitempty" db:"source_country"`
	DestinationCountry string               `json:"destination_country,omitempty" db:"destination_country"`
	CounterpartyName   string               `json:"counterparty_name,omitempty" db:"counterparty_name"`
	OccurredAt         time.Time            `json:"occurred_at" db:"occurred_at"`
}

// IsCash returns true for cash transactions
func (t *FinancialTransaction) IsCash() bool {
	return t.PaymentMethod == PaymentCash
}

// IsCrypto returns true for virtual-asset transactions
func (t *FinancialTransaction) IsCrypto() bool {
	return t.PaymentMethod == PaymentCrypto
}

// IsCrossBorder returns true if the transaction crosses borders
func (t *FinancialTransaction) IsCrossBorder() bool {
	return t.SourceCountry != "" && t.DestinationCountry != "" &&
		t.SourceCountry != t.DestinationCountry
}
