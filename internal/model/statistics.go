package model

import (
	"github.com/shopspring/decimal"
)

// DashboardSummary aggregates sale counts, revenue and commission figures
type DashboardSummary struct {
	TotalSales       int64           `json:"total_sales"`
	PendingSales     int64           `json:"pending_sales"`
	ApprovedSales    int64           `json:"approved_sales"`
	RejectedSales    int64           `json:"rejected_sales"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AverageSale      decimal.Decimal `json:"average_sale"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	CommissionPaid   decimal.Decimal `json:"commission_paid"`
	CommissionUnpaid decimal.Decimal `json:"commission_unpaid"`
	TotalClients     int64           `json:"total_clients"`
}

// TrendPoint is one time bucket of approved revenue
type TrendPoint struct {
	Period     string          `json:"period"`
	SalesCount int64           `json:"sales_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	Commission decimal.Decimal `json:"commission"`
}

// CategoryTotal is a count and amount for one ad type or payment method
type CategoryTotal struct {
	Category   string          `json:"category"`
	SalesCount int64           `json:"sales_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// JournalistRanking is one row of the revenue leaderboard
type JournalistRanking struct {
	JournalistID   string          `json:"journalist_id"`
	JournalistName string          `json:"journalist_name"`
	SalesCount     int64           `json:"sales_count"`
	Revenue        decimal.Decimal `json:"revenue"`
	Commission     decimal.Decimal `json:"commission"`
}

// ClientRanking is one row of the top-clients table
type ClientRanking struct {
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	SalesCount int64           `json:"sales_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// CommissionBalance is the aggregate reconciliation for one journalist
type CommissionBalance struct {
	JournalistID   string          `json:"journalist_id"`
	JournalistName string          `json:"journalist_name"`
	Earned         decimal.Decimal `json:"earned"`
	Paid           decimal.Decimal `json:"paid"`
	Balance        decimal.Decimal `json:"balance"`
}
