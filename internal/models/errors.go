package affinity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyOwner          = errors.New("owner id is required")
	ErrInvalidAction       = errors.New("invalid action")
	ErrNegativeInput       = errors.New("negative input")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidSource       = errors.New("invalid source")
	ErrInvalidTiers        = errors.New("invalid tier table")
	ErrInvalidPayload      = errors.New("invalid reward payload")
	ErrAlreadyClaimed      = errors.New("reward already claimed")
	ErrLedgerBroken        = errors.New("ledger chain is broken")
)

// Списание больше баланса
type InsufficientBalanceError struct {
	OwnerID string
	Balance decimal.Decimal
	Delta   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: owner %s, available %s, requested %s",
		e.OwnerID, e.Balance.String(), e.Delta.Neg().String())
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
