// Package holdings persists broker holdings merged with sector data in SQLite.
package holdings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS holdings_with_sector (
	tradingsymbol TEXT NOT NULL PRIMARY KEY,
	average_price REAL NOT NULL DEFAULT 0,
	day_change REAL NOT NULL DEFAULT 0,
	day_change_percentage REAL NOT NULL DEFAULT 0,
	pnl REAL NOT NULL DEFAULT 0,
	total_quantity REAL NOT NULL DEFAULT 0,
	sector TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	marketCap REAL NOT NULL DEFAULT 0,
	companyName TEXT NOT NULL DEFAULT '',
	volume REAL NOT NULL DEFAULT 0,
	price REAL NOT NULL DEFAULT 0,
	total_value REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_holdings_total_value ON holdings_with_sector(total_value);
`

const columns = `tradingsymbol, average_price, day_change, day_change_percentage, pnl, total_quantity,
	sector, industry, marketCap, companyName, volume, price, total_value`

// Open opens (or creates) the holdings database at path and ensures the schema.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path == MemoryPath {
		dsn = MemoryPath
	} else {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if path == MemoryPath {
		// every new connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return db, nil
}

// Repository reads and replaces the holdings table.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an opened database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Replace swaps the whole table content for rows in one transaction.
func (r *Repository) Replace(ctx context.Context, rows []portfolio.Holding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings_with_sector`); err != nil {
		return fmt.Errorf("clear holdings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO holdings_with_sector (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range rows {
		if _, err := stmt.ExecContext(ctx,
			h.TradingSymbol, h.AveragePrice, h.DayChange, h.DayChangePercentage, h.PnL, h.TotalQuantity,
			h.Sector, h.Industry, h.MarketCap, h.CompanyName, h.Volume, h.Price, h.TotalValue,
		); err != nil {
			return fmt.Errorf("insert %s: %w", h.TradingSymbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// List returns every holding with its share of the total portfolio value.
func (r *Repository) List(ctx context.Context) ([]portfolio.Holding, error) {
	rows, err := r.query(ctx, `SELECT `+columns+` FROM holdings_with_sector ORDER BY total_value DESC, tradingsymbol`)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(rows))
	for i, h := range rows {
		values[i] = h.TotalValue
	}
	for i, pct := range Percentages(values) {
		rows[i].Percentage = pct
	}
	return rows, nil
}

// Top returns the n most valuable holdings.
func (r *Repository) Top(ctx context.Context, n int) ([]portfolio.Holding, error) {
	return r.query(ctx, `SELECT `+columns+` FROM holdings_with_sector ORDER BY total_value DESC, tradingsymbol LIMIT ?`, n)
}

// SectorAllocation sums holdings value per sector.
func (r *Repository) SectorAllocation(ctx context.Context) ([]portfolio.SectorAllocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sector, SUM(total_value) AS total_value
		FROM holdings_with_sector GROUP BY sector ORDER BY total_value DESC, sector`)
	if err != nil {
		return nil, fmt.Errorf("query sector allocation: %w", err)
	}
	defer rows.Close()

	result := make([]portfolio.SectorAllocation, 0, 8)
	for rows.Next() {
		var item portfolio.SectorAllocation
		if err := rows.Scan(&item.Sector, &item.TotalValue); err != nil {
			return nil, fmt.Errorf("scan sector allocation: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sector allocation: %w", err)
	}

	values := make([]float64, len(result))
	for i, item := range result {
		values[i] = item.TotalValue
	}
	for i, pct := range Percentages(values) {
		result[i].Percentage = pct
	}
	return result, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]portfolio.Holding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	result := make([]portfolio.Holding, 0, 16)
	for rows.Next() {
		var h portfolio.Holding
		if err := rows.Scan(
			&h.TradingSymbol, &h.AveragePrice, &h.DayChange, &h.DayChangePercentage, &h.PnL, &h.TotalQuantity,
			&h.Sector, &h.Industry, &h.MarketCap, &h.CompanyName, &h.Volume, &h.Price, &h.TotalValue,
		); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", err)
	}
	return result, nil
}

// QueryRowLimit caps how many rows Query renders.
const QueryRowLimit = 50

// NoDataFound is what Query answers for an empty result set.
const NoDataFound = "No data found."

var ErrNotReadOnly = errors.New("only a single SELECT statement is allowed")

// Query runs one ad-hoc read-only statement and renders the result as text:
// a header of column names, then one line per row, values separated by " | ".
// The statement runs with SQLite's query_only pragma set, inside a
// transaction that is always rolled back.
func (r *Repository) Query(ctx context.Context, query string) (string, error) {
	stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	fields := strings.Fields(stmt)
	if len(fields) == 0 || strings.Contains(stmt, ";") {
		return "", ErrNotReadOnly
	}
	if head := strings.ToUpper(fields[0]); head != "SELECT" && head != "WITH" {
		return "", ErrNotReadOnly
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// query_only also rejects writes hidden in a WITH clause. It is a
	// connection setting, so it is switched back before the connection
	// returns to the pool.
	if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		return "", fmt.Errorf("enable query_only: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), `PRAGMA query_only = OFF`); err != nil {
			log.Printf("[holdings] failed to reset query_only: %v", err)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin query: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString(strings.Join(cols, " | "))

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if count == QueryRowLimit {
			builder.WriteString(fmt.Sprintf("\n... more rows omitted (limit %d)", QueryRowLimit))
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return "", err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = formatCell(v)
		}
		builder.WriteString("\n")
		builder.WriteString(strings.Join(cells, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if count == 0 {
		return NoDataFound, nil
	}
	return builder.String(), nil
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

var hundred = decimal.NewFromInt(100)

// Percentages returns each value's share of the sum, in percent rounded to
// two decimals. A zero sum yields zeros.
func Percentages(values []float64) []float64 {
	total := decimal.Zero
	decs := make([]decimal.Decimal, len(values))
	for i, v := range values {
		decs[i] = decimal.NewFromFloat(v)
		total = total.Add(decs[i])
	}

	result := make([]float64, len(values))
	if total.IsZero() {
		return result
	}
	for i, d := range decs {
		result[i] = d.Div(total).Mul(hundred).Round(2).InexactFloat64()
	}
	return result
}
