package categories

import "github.com/cleared-dev/tally/internal/model"

// Category is one row of the category chart.
type Category struct {
	Name        string
	Group       string // presentation super-group, e.g. housing
	Type        model.TxType
	Description string
}

const (
	// OtherGroup holds categories without an explicit group.
	OtherGroup = "other"
	// SavingsGroup is pinned last in rollups.
	SavingsGroup = "savings"
)

// DefaultChart returns the starter category chart written by init.
func DefaultChart() []Category {
	return []Category{
		{Name: "sales", Group: "revenue", Type: model.TypeIncome, Description: "Direct sales and invoices"},
		{Name: "marketplace_payout", Group: "revenue", Type: model.TypeIncome, Description: "Marketplace settlement payouts"},
		{Name: "interest", Group: "revenue", Type: model.TypeIncome, Description: "Bank and exchange interest"},
		{Name: "rent", Group: "housing", Type: model.TypeExpense, Description: "Rent and lease"},
		{Name: "utilities", Group: "housing", Type: model.TypeExpense, Description: "Power, water, internet"},
		{Name: "groceries", Group: "food", Type: model.TypeExpense},
		{Name: "restaurants", Group: "food", Type: model.TypeExpense},
		{Name: "fuel", Group: "transport", Type: model.TypeExpense},
		{Name: "transit", Group: "transport", Type: model.TypeExpense, Description: "Public transport, taxis"},
		{Name: "software", Group: "operations", Type: model.TypeExpense, Description: "Software subscriptions"},
		{Name: "fees", Group: "operations", Type: model.TypeExpense, Description: "Bank, marketplace and exchange fees"},
		{Name: "professional_services", Group: "operations", Type: model.TypeExpense, Description: "Legal, accounting, consulting"},
		{Name: "transfer", Group: "transfers", Type: model.TypeTransfer, Description: "Transfers to third parties"},
		{Name: "internal_transfer", Group: "transfers", Type: model.TypeInternal, Description: "Moves between own accounts"},
		{Name: "savings", Group: SavingsGroup, Type: model.TypeTransfer, Description: "Reserve contributions"},
		uncategorized,
	}
}

var uncategorized = Category{Name: model.Uncategorized, Group: OtherGroup, Type: model.TypeExpense, Description: "No rule matched"}
