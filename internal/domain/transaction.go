package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of wallet ledger entry
type TransactionType string

const (
	TransactionDeposit     TransactionType = "DEPOSIT"
	TransactionWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionGameEntry   TransactionType = "GAME_ENTRY"
	TransactionGameWinning TransactionType = "GAME_WINNING"
	TransactionReferral    TransactionType = "REFERRAL_BONUS"
	TransactionRefund      TransactionType = "REFUND"
)

// GameResult represents the outcome of a game for the user
type GameResult string

const (
	GameResultWon     GameResult = "WON"
	GameResultLost    GameResult = "LOST"
	GameResultPending GameResult = "PENDING"
)

// Transaction is a wallet ledger entry as returned by the backend
type Transaction struct {
	ID        string          `json:"id,omitempty"`
	Type      TransactionType `json:"type"`
	Amount    float64         `json:"amount"`
	Status    string          `json:"status,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Game is a single game record the user participated in
type Game struct {
	ID        string     `json:"id,omitempty"`
	Status    string     `json:"status,omitempty"`
	Result    GameResult `json:"result"`
	EntryFee  float64    `json:"entryFee"`
	WinAmount float64    `json:"winAmount"`
	CreatedAt time.Time  `json:"createdAt"`
}

// WithdrawalStatus represents the lifecycle of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalApproved WithdrawalStatus = "APPROVED"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
	WithdrawalOnHold   WithdrawalStatus = "ON_HOLD"
)

// Withdrawal is a cash-out request awaiting admin review
type Withdrawal struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	Amount    float64          `json:"amount"`
	Status    WithdrawalStatus `json:"status"`
	Method    string           `json:"method,omitempty"` // UPI, BANK, ...
	CreatedAt time.Time        `json:"createdAt"`
}

// IsPending returns true if the withdrawal has not been decided yet
func (w *Withdrawal) IsPending() bool {
	return w.Status == WithdrawalPending || w.Status == WithdrawalOnHold
}
