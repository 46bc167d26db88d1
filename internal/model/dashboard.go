package model

import (
	"time"
)

// DashboardResponse aggregates workflow and warehouse metrics for the
// admin dashboard.
type DashboardResponse struct {
	PendingByKind      map[string]int64 `json:"pending_by_kind"`
	DecidedInRange     int64            `json:"decided_in_range"`
	LeaveDaysApproved  string           `json:"leave_days_approved"` // decimal string
	ExpenseTotalUSD    string           `json:"expense_total_usd"`   // decimal string
	PurchaseTotal      string           `json:"purchase_total"`      // decimal string
	TopReceivedItems   []ProductRanking `json:"top_received_items"`
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
}

// ProductRanking represents a ranked product based on accumulated quantities
type ProductRanking struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductSKU    string `json:"product_sku"`
	TotalQuantity int    `json:"total_quantity"`
	TotalValue    string `json:"total_value"`
}
