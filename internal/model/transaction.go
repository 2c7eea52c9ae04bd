package model

import (
	"fmt"
	"time"
)

// TransactionKind discriminates income from expense. Inflows and outflows
// live in separate tables with separate category namespaces, but every
// operation on them is the same, so code paths take a kind instead of
// being duplicated.
type TransactionKind string

const (
	Inflow  TransactionKind = "inflow"
	Outflow TransactionKind = "outflow"
)

// ParseTransactionKind accepts "inflow" or "outflow".
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch TransactionKind(s) {
	case Inflow, Outflow:
		return TransactionKind(s), nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
}

func (k TransactionKind) String() string {
	return string(k)
}

// Category is a user-owned label for inflows or outflows.
// Names are unique per user and kind, ignoring case and surrounding space.
type Category struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Kind      TransactionKind `json:"type"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CategoryStat is a category together with the number of transactions
// filed under it.
type CategoryStat struct {
	Category
	TransactionCount int `json:"transactionCount"`
}

// Transaction is a single inflow or outflow.
//
// Amount is in the smallest currency unit (kobo) and always positive;
// the kind, not the sign, says which way the money moved.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Kind        TransactionKind `json:"type"`
	Amount      int64           `json:"amount"`
	CategoryID  string          `json:"categoryId"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	// Populated by list queries that join the category.
	Category *Category `json:"category,omitempty"`
}
