package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Balance bounds in minor units.
const (
	DefaultBalance int64 = 2000
	MinBalance     int64 = 0
	MaxBalance     int64 = math.MaxInt64
)

// Wallet is a single balance holder addressed by an opaque UUID.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OperationType is the closed set of balance mutations.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

// OperationTypes lists every accepted operation type.
var OperationTypes = []OperationType{OperationDeposit, OperationWithdraw}

func (t OperationType) IsValid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw:
		return true
	}
	return false
}

func (t OperationType) String() string {
	return string(t)
}

// ParseOperationType converts the wire value into an OperationType.
// Matching is exact: "deposit" is rejected.
func ParseOperationType(s string) (OperationType, error) {
	t := OperationType(s)
	if !t.IsValid() {
		return "", ErrInvalidOperationType
	}
	return t, nil
}

// Operation is a requested balance change.
type Operation struct {
	Type   OperationType
	Amount int64
}

// Validate checks the operation independently of any wallet state.
func (o Operation) Validate() error {
	if !o.Type.IsValid() {
		return ErrInvalidOperationType
	}
	if o.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Apply returns the balance that results from applying o to balance.
// The input balance is never modified; on error the caller must keep it.
func (o Operation) Apply(balance int64) (int64, error) {
	if err := o.Validate(); err != nil {
		return balance, err
	}

	switch o.Type {
	case OperationDeposit:
		if balance > MaxBalance-o.Amount {
			return balance, ErrBalanceOverflow
		}
		return balance + o.Amount, nil
	case OperationWithdraw:
		if balance-o.Amount < MinBalance {
			return balance, ErrInsufficientBalance
		}
		return balance - o.Amount, nil
	}
	return balance, ErrInvalidOperationType
}

// ValidateInitialBalance checks a caller-supplied creation balance.
func ValidateInitialBalance(balance int64) error {
	if balance < MinBalance {
		return ErrNegativeBalance
	}
	return nil
}
