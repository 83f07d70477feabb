// Package scoring computes the fraud risk assessment for a user profile.
//
// Assess is a pure function of its input: it performs no I/O, keeps no state
// and may be called concurrently.
package scoring

import (
	"github.com/gaming/risk-service/internal/domain"
)

// Points contributed by each fired rule
const (
	CriticalWeight = 30
	WarningWeight  = 10
)

// Finding codes
const (
	CodeWinningsWithoutDeposits   = "WINNINGS_WITHOUT_DEPOSITS"
	CodeWinningsWithoutWonGame    = "WINNINGS_WITHOUT_WON_GAME"
	CodeGamesWithoutLogin         = "GAMES_WITHOUT_LOGIN"
	CodeWinningsNotWithdrawable   = "WINNINGS_NOT_WITHDRAWABLE"
	CodeWinningsWithoutHistory    = "WINNINGS_WITHOUT_TRANSACTIONS"
	CodeGamesWithoutRecords       = "GAMES_WITHOUT_RECORDS"
	CodeKYCPendingHighWinnings    = "KYC_PENDING_HIGH_WINNINGS"
	CodeNoLastActive              = "NO_LAST_ACTIVE"
	CodeNoDepositTransactions     = "NO_DEPOSIT_TRANSACTIONS"
	CodeNoGameEntryTransactions   = "NO_GAME_ENTRY_TRANSACTIONS"
	CodeNoGameWinningTransactions = "NO_GAME_WINNING_TRANSACTIONS"
	CodeHighWinRate               = "HIGH_WIN_RATE"
	CodeClean                     = "CLEAN"
)

const (
	highWinningsNotWithdrawableMin = 50
	kycPendingWinningsMin          = 100
	highWinRatePercent             = 80
	highWinRateMinGames            = 5
)

// rule is a single check over a profile. Rules are evaluated in slice order.
type rule struct {
	code    string
	message string
	fires   func(p *domain.UserRiskProfile) bool
}

var criticalRules = []rule{
	{
		code:    CodeWinningsWithoutDeposits,
		message: "User has winnings but zero deposits",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.Statistics.TotalWinnings > 0 && p.Statistics.TotalDeposits == 0
		},
	},
	{
		code:    CodeWinningsWithoutWonGame,
		message: "User has winnings without any won game",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.Statistics.GamesWon == 0 && p.Statistics.TotalWinnings > 0
		},
	},
	{
		code:    CodeGamesWithoutLogin,
		message: "Game activity without any login (possible bot)",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.LoginCount == 0 && p.Statistics.TotalGames > 0
		},
	},
	{
		code:    CodeWinningsNotWithdrawable,
		message: "High winnings but zero withdrawable balance",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.Wallet.WithdrawableBalance == 0 && p.Statistics.TotalWinnings > highWinningsNotWithdrawableMin
		},
	},
	{
		code:    CodeWinningsWithoutHistory,
		message: "Winnings with no transaction history",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.Statistics.TotalWinnings > 0 && len(p.AllTransactions) == 0
		},
	},
	{
		code:    CodeGamesWithoutRecords,
		message: "Claimed games with no game records",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.Statistics.TotalGames > 0 && len(p.AllGames) == 0
		},
	},
}

var warningRules = []rule{
	{
		code:    CodeKYCPendingHighWinnings,
		message: "KYC pending with winnings above 100",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.KYCStatus == domain.KYCStatusPending && p.Statistics.TotalWinnings > kycPendingWinningsMin
		},
	},
	{
		code:    CodeNoLastActive,
		message: "No last-active timestamp despite game activity",
		fires: func(p *domain.UserRiskProfile) bool {
			return !p.HasLastActive() && p.Statistics.TotalGames > 0
		},
	},
	{
		code:    CodeNoDepositTransactions,
		message: "No deposit transactions but has winnings",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.CountTransactions(domain.TransactionDeposit) == 0 && p.Statistics.TotalWinnings > 0
		},
	},
	{
		code:    CodeNoGameEntryTransactions,
		message: "No game entry transactions but has played games",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.CountTransactions(domain.TransactionGameEntry) == 0 && p.Statistics.TotalGames > 0
		},
	},
	{
		code:    CodeNoGameWinningTransactions,
		message: "No game winning transactions but has winnings",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.CountTransactions(domain.TransactionGameWinning) == 0 && p.Statistics.TotalWinnings > 0
		},
	},
	{
		code:    CodeHighWinRate,
		message: "Win rate above 80% over more than 5 games",
		fires: func(p *domain.UserRiskProfile) bool {
			return p.Statistics.WinRate > highWinRatePercent && p.Statistics.TotalGames > highWinRateMinGames
		},
	},
}

// CleanMessage is the single finding emitted when no rule fires
const CleanMessage = "No suspicious patterns detected"

// Assess scores a profile. A nil profile is scored as an all-default profile.
func Assess(p *domain.UserRiskProfile) *domain.RiskAssessment {
	if p == nil {
		p = &domain.UserRiskProfile{}
	}

	a := &domain.RiskAssessment{
		Findings: make([]domain.RiskFinding, 0, len(criticalRules)+len(warningRules)),
	}

	for _, r := range criticalRules {
		if r.fires(p) {
			a.CriticalCount++
			a.Findings = append(a.Findings, domain.RiskFinding{
				Severity: domain.SeverityCritical,
				Code:     r.code,
				Message:  r.message,
			})
		}
	}
	for _, r := range warningRules {
		if r.fires(p) {
			a.WarningCount++
			a.Findings = append(a.Findings, domain.RiskFinding{
				Severity: domain.SeverityWarning,
				Code:     r.code,
				Message:  r.message,
			})
		}
	}

	if len(a.Findings) == 0 {
		a.Findings = append(a.Findings, domain.RiskFinding{
			Severity: domain.SeverityClean,
			Code:     CodeClean,
			Message:  CleanMessage,
		})
	}

	a.Score = CriticalWeight*a.CriticalCount + WarningWeight*a.WarningCount
	a.Level = domain.CalculateRiskLevel(a.Score)
	a.Recommendation = domain.CalculateRecommendation(a.Score)

	return a
}
