package domain

import (
	"time"
)

// KYCStatus represents a user's Know-Your-Customer verification state
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusVerified KYCStatus = "VERIFIED"
	KYCStatusRejected KYCStatus = "REJECTED"
)

// UserRiskProfile is the aggregated view of a user assembled by the platform
// backend. Absent numeric fields decode as zero and absent collections as nil,
// which the scorer treats the same as empty.
type UserRiskProfile struct {
	// UserID is informational only and is not interpreted by the scorer
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`

	Statistics Statistics `json:"statistics"`
	Wallet     Wallet     `json:"wallet"`

	KYCStatus  KYCStatus  `json:"kycStatus"`
	LoginCount int        `json:"loginCount"`
	LastActive *time.Time `json:"lastActive,omitempty"`

	AllTransactions []Transaction `json:"allTransactions"`
	AllGames        []Game        `json:"allGames"`
}

// Statistics holds server-computed gameplay aggregates
type Statistics struct {
	TotalGames      float64 `json:"totalGames"`
	GamesWon        float64 `json:"gamesWon"`
	TotalWinnings   float64 `json:"totalWinnings"`
	TotalDeposits   float64 `json:"totalDeposits"`
	TotalLostAmount float64 `json:"totalLostAmount"`
	WinRate         float64 `json:"winRate"` // percent, 0-100
}

// Wallet holds the user's balances
type Wallet struct {
	Balance             float64 `json:"balance"`
	GameBalance         float64 `json:"gameBalance"`
	WithdrawableBalance float64 `json:"withdrawableBalance"`
	BonusBalance        float64 `json:"bonusBalance"`
}

// HasLastActive reports whether the backend recorded any activity timestamp
func (p *UserRiskProfile) HasLastActive() bool {
	return p.LastActive != nil && !p.LastActive.IsZero()
}

// CountTransactions returns the number of ledger entries of the given type
func (p *UserRiskProfile) CountTransactions(txType TransactionType) int {
	n := 0
	for _, tx := range p.AllTransactions {
		if tx.Type == txType {
			n++
		}
	}
	return n
}
