package domain

import "errors"

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrBalanceOverflow      = errors.New("balance overflow")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidOperationType = errors.New("operation_type must be one of DEPOSIT, WITHDRAW")
	ErrNegativeBalance      = errors.New("balance must be greater than or equal to zero")

	// ErrLockTimeout is returned by stores when a wallet lock is not granted in time.
	ErrLockTimeout = errors.New("wallet lock timeout")
)
