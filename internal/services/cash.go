package services

// CashReconciliation compares counted cash against cash sales. A negative
// difference is a shortfall, positive is overage. It is advisory only:
// submission never blocks on a non-zero difference, but the value feeds
// the audit trail so it must be exact.
type CashReconciliation struct {
	Expected   float64 `json:"expected"`
	Difference float64 `json:"difference"`
}

// ReconcileCash is pure: expected cash is the cash sales figure, and the
// variance is counted cash minus expected plus expenses paid out of the till.
func ReconcileCash(cashSales, cashRemaining, expenses float64) CashReconciliation {
	return CashReconciliation{
		Expected:   cashSales,
		Difference: cashRemaining - cashSales + expenses,
	}
}
