package core

// Read-only figures derived from the transaction log and pocket balances.
// Nothing in this file mutates state.

type (
	// DashboardTotals are the headline figures. TotalIncome and TotalExpense
	// sum over ALL transactions regardless of pocket. TotalBalance sums the
	// pockets' cached balances, so orphaned transactions and unbacked seed
	// balances do not distort it; the gap between the two views is a health
	// signal, not a bug.
	DashboardTotals struct {
		TotalIncome  Money `json:"totalIncome"`
		TotalExpense Money `json:"totalExpense"`
		TotalBalance Money `json:"totalBalance"`
	}

	// ChartPoint is one day's activity. Days with no transactions produce no
	// point at all.
	ChartPoint struct {
		Date    string `json:"date"` // YYYY-MM-DD
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	// PocketDetails pairs a pocket with its transactions and sums computed
	// freshly from that list, not from the cached balance. Comparing the two
	// reveals reconciliation drift.
	PocketDetails struct {
		Pocket       Pocket        `json:"pocket"`
		Transactions []Transaction `json:"transactions"`
		TotalIncome  Money         `json:"totalIncome"`
		TotalExpense Money         `json:"totalExpense"`
	}

	// CollectionProgress reports how far a SUC event's collection has come.
	CollectionProgress struct {
		Percentage float64 `json:"percentage"`
		Total      int     `json:"total"`
		Paid       int     `json:"paid"`
	}

	// SucRecordDetail is a record joined with its member for roster views.
	SucRecordDetail struct {
		Record SucRecord `json:"record"`
		Member Member    `json:"member"`
	}
)

// LedgerGap is the divergence between the transaction-log view of the treasury
// and the pocket view. Zero means every unit of money is pocketed and every
// pocket balance is backed by transactions.
func (d DashboardTotals) LedgerGap() Money {
	return Money{Cents: (d.TotalIncome.Cents - d.TotalExpense.Cents) - d.TotalBalance.Cents}
}
