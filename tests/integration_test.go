package tests

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/price-query/internal/adapter/storage"
	"github.com/rl1809/price-query/internal/core/service"
	"github.com/rl1809/price-query/internal/guard"
)

const testStream = "price-events-integration"

type testEnv struct {
	redis    *redis.Client
	mysql    *sql.DB
	svc      *service.PriceService
	pipeline *service.AuditPipeline
	cleanup  func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/prices?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	seedCatalog(t, db)
	rdb.Del(context.Background(), testStream)

	adapter := storage.NewMySQLAdapter(db)
	publisher := storage.NewRedisPublisher(rdb, testStream)

	breakers := guard.NewRegistry()
	pipeline := service.NewAuditPipeline(adapter, publisher, breakers, 2, 64)
	svc := service.NewPriceService(adapter, service.NewPriceResolver(adapter), pipeline, breakers)

	return &testEnv{
		redis:    rdb,
		mysql:    db,
		svc:      svc,
		pipeline: pipeline,
		cleanup: func() {
			rdb.Del(context.Background(), testStream)
			rdb.Close()
			db.Close()
		},
	}
}

func seedCatalog(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			product_id BIGINT NOT NULL,
			brand_id BIGINT NOT NULL,
			price_list BIGINT NOT NULL,
			start_date DATETIME NOT NULL,
			end_date DATETIME NULL,
			priority INT NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			currency CHAR(3) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_events (
			id CHAR(36) PRIMARY KEY,
			product_id BIGINT NOT NULL,
			brand_id BIGINT NOT NULL,
			price_list BIGINT NOT NULL,
			query_date DATETIME NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			event_type VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM prices WHERE product_id = 35455`); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM price_events WHERE product_id = 35455`); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	seed := `INSERT INTO prices (product_id, brand_id, price_list, start_date, end_date, priority, price, currency) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	rows := []struct {
		priceList int64
		start     string
		end       string
		priority  int
		price     string
	}{
		{1, "2020-06-14 00:00:00", "2020-12-31 23:59:59", 0, "35.50"},
		{2, "2020-06-14 15:00:00", "2020-06-14 18:30:00", 1, "25.45"},
		{3, "2020-06-15 00:00:00", "2020-06-15 11:00:00", 1, "30.50"},
		{4, "2020-06-15 16:00:00", "2020-12-31 23:59:59", 1, "38.95"},
	}
	for _, r := range rows {
		if _, err := db.ExecContext(ctx, seed, 35455, 1, r.priceList, r.start, r.end, r.priority, r.price, "EUR"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestFindPrice_EndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	cases := []struct {
		name      string
		date      time.Time
		price     string
		priceList int64
	}{
		{"day 14 morning", time.Date(2020, 6, 14, 10, 0, 0, 0, time.UTC), "35.50", 1},
		{"day 14 promotion", time.Date(2020, 6, 14, 16, 0, 0, 0, time.UTC), "25.45", 2},
		{"day 14 evening", time.Date(2020, 6, 14, 21, 0, 0, 0, time.UTC), "35.50", 1},
		{"day 15 morning", time.Date(2020, 6, 15, 10, 0, 0, 0, time.UTC), "30.50", 3},
		{"day 16 evening", time.Date(2020, 6, 16, 21, 0, 0, 0, time.UTC), "38.95", 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := env.svc.FindPrice(ctx, 35455, 1, tc.date)
			if err != nil {
				t.Fatalf("FindPrice failed: %v", err)
			}
			if !resolved.Window.Price.Equal(decimal.RequireFromString(tc.price)) {
				t.Errorf("expected %s, got %s", tc.price, resolved.Window.Price)
			}
			if resolved.Window.PriceList != tc.priceList {
				t.Errorf("expected price list %d, got %d", tc.priceList, resolved.Window.PriceList)
			}
		})
	}

	// Drain the pipeline, then check the audit trail on both sides.
	env.pipeline.Close()

	var stored int
	err := env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_events WHERE product_id = 35455`).Scan(&stored)
	if err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if stored != len(cases) {
		t.Errorf("expected %d stored events, got %d", len(cases), stored)
	}

	entries, err := env.redis.XRange(ctx, testStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange failed: %v", err)
	}
	if len(entries) != len(cases) {
		t.Errorf("expected %d published events, got %d", len(cases), len(entries))
	}
}

func TestFindPrice_NotFoundProducesNoEvent(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	_, err := env.svc.FindPrice(ctx, 35455, 1, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected not-found error")
	}

	env.pipeline.Close()

	var stored int
	if err := env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_events WHERE product_id = 35455`).Scan(&stored); err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if stored != 0 {
		t.Errorf("expected no events, got %d", stored)
	}
}

func TestGetAllPrices_EndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	defer env.pipeline.Close()

	windows, err := env.svc.GetAllPrices(context.Background())
	if err != nil {
		t.Fatalf("GetAllPrices failed: %v", err)
	}
	if len(windows) < 4 {
		t.Errorf("expected at least 4 windows, got %d", len(windows))
	}
}
