package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rl1809/price-query/internal/core/domain"
)

// MySQLAdapter implements the PriceCatalog and EventStore ports over a
// shared *sql.DB.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) FindApplicable(ctx context.Context, productID, brandID int64, date time.Time) ([]domain.PriceWindow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, brand_id, price_list, start_date, end_date, priority, price, currency
		FROM prices
		WHERE product_id = ? AND brand_id = ?
		  AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)`,
		productID, brandID, date, date,
	)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

func (m *MySQLAdapter) GetAll(ctx context.Context) ([]domain.PriceWindow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, brand_id, price_list, start_date, end_date, priority, price, currency
		FROM prices`,
	)
	if err != nil {
		return nil, fmt.Errorf("query all prices: %w", err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

func (m *MySQLAdapter) SaveEvent(ctx context.Context, event domain.PriceEvent) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO price_events (id, product_id, brand_id, price_list, query_date, price, event_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.ProductID, event.BrandID, event.PriceList,
		event.QueryDate, event.Price, string(event.EventType), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert price event: %w", err)
	}
	return nil
}

func scanWindows(rows *sql.Rows) ([]domain.PriceWindow, error) {
	var windows []domain.PriceWindow
	for rows.Next() {
		var w domain.PriceWindow
		var endDate sql.NullTime
		if err := rows.Scan(&w.ProductID, &w.BrandID, &w.PriceList, &w.StartDate, &endDate, &w.Priority, &w.Price, &w.Currency); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		if endDate.Valid {
			end := endDate.Time
			w.EndDate = &end
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}
	return windows, nil
}
