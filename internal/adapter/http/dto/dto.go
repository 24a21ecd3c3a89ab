package dto

import (
	"wallet-service/internal/core/domain"
)

// CreateWalletRequest is the optional request body for wallet creation.
// A missing body or a missing balance means the configured default.
type CreateWalletRequest struct {
	Balance *int64 `json:"balance" binding:"omitempty,gte=0"`
}

// OperationRequest is the request body for a balance operation.
type OperationRequest struct {
	OperationType domain.OperationType `json:"operation_type" binding:"required,operation_type"`
	Amount        int64                `json:"amount" binding:"gt=0"`
}

// ToOperation converts the request into a domain operation.
func (r OperationRequest) ToOperation() domain.Operation {
	return domain.Operation{Type: r.OperationType, Amount: r.Amount}
}

// WalletResponse is the body returned by every successful wallet endpoint.
type WalletResponse struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{ID: w.ID.String(), Balance: w.Balance}
}

// RootResponse is the service info document served at "/".
type RootResponse struct {
	Message     string `json:"message"`
	Docs        string `json:"docs"`
	HealthCheck string `json:"health_check"`
}

type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}
