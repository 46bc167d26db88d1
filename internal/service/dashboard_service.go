package service

import (
	"context"
	"time"

	"erpcore/internal/model"
	"erpcore/internal/workflow"

	"gorm.io/gorm"
)

type DashboardService interface {
	GetDashboard(ctx context.Context, startDate, endDate time.Time) (model.DashboardResponse, error)
}

type dashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) DashboardService {
	return &dashboardService{db: db}
}

// GetDashboard aggregates workflow metrics in the given time window.
// Pending counts are point-in-time; decided metrics are bounded by
// decided_at.
func (s *dashboardService) GetDashboard(ctx context.Context, startDate, endDate time.Time) (model.DashboardResponse, error) {
	var response model.DashboardResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	// Pending queue size per kind
	var pending []struct {
		Kind  string
		Count int64
	}
	s.db.WithContext(ctx).Table("requests").
		Select("kind, COUNT(*) as count").
		Where("status = ?", workflow.StatusPending).
		Group("kind").
		Scan(&pending)
	response.PendingByKind = make(map[string]int64, len(pending))
	for _, p := range pending {
		response.PendingByKind[p.Kind] = p.Count
	}

	// Decisions made in the window
	s.db.WithContext(ctx).Table("requests").
		Where("decided_at >= ? AND decided_at <= ?", startDate, endDate).
		Count(&response.DecidedInRange)

	// Approved leave days
	var leaveDays struct {
		Value string
	}
	s.db.WithContext(ctx).Table("requests").
		Select("COALESCE(CAST(SUM(amount) AS TEXT), '0') as value").
		Where("kind = ? AND status = ? AND decided_at >= ? AND decided_at <= ?",
			workflow.KindLeave, workflow.StatusApproved, startDate, endDate).
		Scan(&leaveDays)
	response.LeaveDaysApproved = leaveDays.Value

	// Approved expense total in the base currency
	var expenseTotal struct {
		Value string
	}
	s.db.WithContext(ctx).Table("requests").
		Select("COALESCE(CAST(SUM(base_amount) AS TEXT), '0') as value").
		Where("kind = ? AND status = ? AND decided_at >= ? AND decided_at <= ?",
			workflow.KindExpense, workflow.StatusApproved, startDate, endDate).
		Scan(&expenseTotal)
	response.ExpenseTotalUSD = expenseTotal.Value

	// Approved purchase order total
	var purchaseTotal struct {
		Value string
	}
	s.db.WithContext(ctx).Table("requests").
		Select("COALESCE(CAST(SUM(amount) AS TEXT), '0') as value").
		Where("kind = ? AND status IN ? AND decided_at >= ? AND decided_at <= ?",
			workflow.KindPurchaseOrder,
			[]string{string(workflow.StatusApproved), string(workflow.StatusPartiallyReceived), string(workflow.StatusReceived)},
			startDate, endDate).
		Scan(&purchaseTotal)
	response.PurchaseTotal = purchaseTotal.Value

	// Most received products by stocked-in quantity
	var topReceived []model.ProductRanking
	s.db.WithContext(ctx).Table("inventory_transactions").
		Select("products.id as product_id, products.name as product_name, products.sku as product_sku, SUM(inventory_transactions.quantity_changed) as total_quantity, CAST(SUM(inventory_transactions.quantity_changed * products.unit_price) AS TEXT) as total_value").
		Joins("JOIN products ON products.id = inventory_transactions.product_id").
		Where("inventory_transactions.transaction_type = ? AND inventory_transactions.created_at >= ? AND inventory_transactions.created_at <= ?",
			model.TxTypeIn, startDate, endDate).
		Group("products.id, products.name, products.sku").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&topReceived)
	response.TopReceivedItems = topReceived

	return response, nil
}
