package domain

// EventType classifies a monthly ledger event.
type EventType string

// Event type constants.
const (
	EventTrade           EventType = "TRADE"
	EventDeposit         EventType = "DEPOSIT"
	EventWithdrawal      EventType = "WITHDRAWAL"
	EventInterestIncome  EventType = "INTEREST_INCOME"
	EventInterestExpense EventType = "INTEREST_EXPENSE"
	EventDebtIncrease    EventType = "DEBT_INCREASE"
	EventInfo            EventType = "INFO"
	EventAlert           EventType = "ALERT"
)

// Event records one thing that happened to the portfolio during a month.
// Amount is the signed cash-flow effect of the event; informational events
// carry zero.
type Event struct {
	Type        EventType
	Description string
	Amount      float64
}
