package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandops/fulfillment/internal/errs"
)

type Dashboard struct {
	TotalUsers    int64   `json:"total_users"`
	TotalOrders   int64   `json:"total_orders"`
	TotalPayments int64   `json:"total_payments"`
	TotalRevenue  float64 `json:"total_revenue"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type Report struct {
	OrdersByMonth  []MonthlyCount   `json:"orders_by_month"`
	RevenueByMonth []MonthlyRevenue `json:"revenue_by_month"`
}

type Store struct {
	DB *pgxpool.Pool
}

func (s *Store) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	err := s.DB.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM payments),
			(SELECT COALESCE(SUM(amount), 0) FROM payments)`).
		Scan(&d.TotalUsers, &d.TotalOrders, &d.TotalPayments, &d.TotalRevenue)
	if err != nil {
		return nil, errs.Internal(err, "dashboard query failed")
	}
	return &d, nil
}

func (s *Store) Report(ctx context.Context) (*Report, error) {
	rep := Report{OrdersByMonth: []MonthlyCount{}, RevenueByMonth: []MonthlyRevenue{}}

	rows, err := s.DB.Query(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month, COUNT(*)
		FROM orders GROUP BY month ORDER BY month`)
	if err != nil {
		return nil, errs.Internal(err, "report query failed")
	}
	defer rows.Close()
	for rows.Next() {
		var m MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, errs.Internal(err, "report query failed")
		}
		rep.OrdersByMonth = append(rep.OrdersByMonth, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal(err, "report query failed")
	}

	rows, err = s.DB.Query(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month, SUM(amount)
		FROM payments GROUP BY month ORDER BY month`)
	if err != nil {
		return nil, errs.Internal(err, "report query failed")
	}
	defer rows.Close()
	for rows.Next() {
		var m MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue); err != nil {
			return nil, errs.Internal(err, "report query failed")
		}
		rep.RevenueByMonth = append(rep.RevenueByMonth, m)
	}
	return &rep, rows.Err()
}
