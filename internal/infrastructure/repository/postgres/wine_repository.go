package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/podoring/wine-search/internal/core/domain"
)

type WineRepository struct {
	db        *sql.DB
	filterCap int
}

func NewWineRepository(db *sql.DB, filterCap int) *WineRepository {
	if filterCap <= 0 {
		filterCap = 100
	}
	return &WineRepository{db: db, filterCap: filterCap}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *WineRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/importer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS wines (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	rating DOUBLE PRECISION,
	vintage INTEGER,
	type TEXT,
	variety TEXT,
	region_1 TEXT,
	region_2 TEXT,
	province TEXT,
	country TEXT,
	winery TEXT,
	price DOUBLE PRECISION,
	abv DOUBLE PRECISION,
	description TEXT,
	taste TEXT,
	acidity DOUBLE PRECISION,
	sweetness DOUBLE PRECISION,
	tannin DOUBLE PRECISION,
	body DOUBLE PRECISION,
	cost_effectiveness DOUBLE PRECISION,
	image TEXT,
	stock INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_wines_type ON wines(type);
CREATE INDEX IF NOT EXISTS idx_wines_country ON wines(country);
CREATE INDEX IF NOT EXISTS idx_wines_price ON wines(price);
CREATE INDEX IF NOT EXISTS idx_wines_rating ON wines(rating DESC);

CREATE TABLE IF NOT EXISTS inventory (
	id BIGSERIAL PRIMARY KEY,
	wine_id BIGINT NOT NULL REFERENCES wines(id) ON DELETE CASCADE,
	shelf TEXT NOT NULL,
	shelf_row INTEGER NOT NULL,
	shelf_col INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inventory_wine_id ON inventory(wine_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const wineColumns = `id, title, rating, vintage, type, variety, region_1, region_2, province, country, winery, price, abv, description, taste, acidity, sweetness, tannin, body, cost_effectiveness, image, stock`

// sortColumns whitelists the orderable columns so a parsed sort key can
// never reach the SQL text unchecked.
var sortColumns = map[string]string{
	domain.SortByPrice:     "price",
	domain.SortByRating:    "rating",
	domain.SortByABV:       "abv",
	domain.SortByTannin:    "tannin",
	domain.SortBySweetness: "sweetness",
	domain.SortByAcidity:   "acidity",
	domain.SortByBody:      "body",
}

// FilterWines ANDs every set condition into the predicate list. Unsorted
// results default to rating descending, nulls last.
func (r *WineRepository) FilterWines(ctx context.Context, cond domain.ParsedConditions) ([]domain.WineRecord, error) {
	var (
		predicates []string
		args       []any
	)
	addPredicate := func(format string, value any) {
		args = append(args, value)
		predicates = append(predicates, fmt.Sprintf(format, len(args)))
	}

	if cond.PriceMin != nil {
		addPredicate("price >= $%d", *cond.PriceMin)
	}
	if cond.PriceMax != nil {
		addPredicate("price <= $%d", *cond.PriceMax)
	}
	if cond.Type != "" {
		addPredicate("type = $%d", string(cond.Type))
	}
	if cond.RatingMin != nil {
		addPredicate("rating >= $%d", *cond.RatingMin)
	}
	if cond.TanninMin != nil {
		addPredicate("tannin >= $%d", *cond.TanninMin)
	}
	if cond.TanninMax != nil {
		addPredicate("tannin <= $%d", *cond.TanninMax)
	}
	if cond.AcidityMin != nil {
		addPredicate("acidity >= $%d", *cond.AcidityMin)
	}
	if cond.AcidityMax != nil {
		addPredicate("acidity <= $%d", *cond.AcidityMax)
	}
	if cond.SweetnessMin != nil {
		addPredicate("sweetness >= $%d", *cond.SweetnessMin)
	}
	if cond.SweetnessMax != nil {
		addPredicate("sweetness <= $%d", *cond.SweetnessMax)
	}
	if cond.BodyMin != nil {
		addPredicate("body >= $%d", *cond.BodyMin)
	}
	if cond.BodyMax != nil {
		addPredicate("body <= $%d", *cond.BodyMax)
	}
	if cond.ABVMin != nil {
		addPredicate("abv >= $%d", *cond.ABVMin)
	}
	if cond.ABVMax != nil {
		addPredicate("abv <= $%d", *cond.ABVMax)
	}
	if cond.Country != "" {
		addPredicate("country ILIKE $%d", "%"+cond.Country+"%")
	}
	if cond.Variety != "" {
		addPredicate("variety ILIKE $%d", "%"+cond.Variety+"%")
	}

	query := "SELECT " + wineColumns + " FROM wines"
	if len(predicates) > 0 {
		query += " WHERE " + strings.Join(predicates, " AND ")
	}

	orderColumn, orderDir := "rating", "DESC"
	if column, ok := sortColumns[cond.SortBy]; ok {
		orderColumn = column
		if cond.SortOrder == domain.SortAsc {
			orderDir = "ASC"
		}
	}
	args = append(args, r.filterCap)
	query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST LIMIT $%d", orderColumn, orderDir, len(args))

	return r.queryWines(ctx, query, args...)
}

func (r *WineRepository) ListWines(ctx context.Context, filter domain.CatalogFilter) ([]domain.WineRecord, error) {
	var (
		predicates []string
		args       []any
	)
	addPredicate := func(format string, value any) {
		args = append(args, value)
		predicates = append(predicates, fmt.Sprintf(format, len(args)))
	}

	if filter.Type != "" {
		addPredicate("type = $%d", filter.Type)
	}
	if filter.Country != "" {
		addPredicate("country ILIKE $%d", "%"+filter.Country+"%")
	}
	if filter.Variety != "" {
		addPredicate("variety ILIKE $%d", "%"+filter.Variety+"%")
	}
	if filter.MinPrice != nil {
		addPredicate("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addPredicate("price <= $%d", *filter.MaxPrice)
	}
	if filter.Search != "" {
		addPredicate("title ILIKE $%d", "%"+filter.Search+"%")
	}

	query := "SELECT " + wineColumns + " FROM wines"
	if len(predicates) > 0 {
		query += " WHERE " + strings.Join(predicates, " AND ")
	}
	query += " ORDER BY title ASC"

	return r.queryWines(ctx, query, args...)
}

func (r *WineRepository) GetWineByID(ctx context.Context, id int64) (*domain.WineRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+wineColumns+" FROM wines WHERE id = $1", id)

	wine, err := scanWine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrWineNotFound, "get wine", err)
		}
		return nil, fmt.Errorf("scan wine: %w", err)
	}
	return wine, nil
}

func (r *WineRepository) MaxPrice(ctx context.Context) (float64, error) {
	var max sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(price) FROM wines`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("query max price: %w", err)
	}
	return max.Float64, nil
}

func (r *WineRepository) ListStockLocations(ctx context.Context, wineID int64) ([]domain.StockLocation, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT shelf, shelf_row, shelf_col
FROM inventory
WHERE wine_id = $1
ORDER BY shelf, shelf_row, shelf_col
`, wineID)
	if err != nil {
		return nil, fmt.Errorf("query stock locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.StockLocation
	for rows.Next() {
		var loc domain.StockLocation
		if err := rows.Scan(&loc.Shelf, &loc.Row, &loc.Col); err != nil {
			return nil, fmt.Errorf("scan stock location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock locations: %w", err)
	}
	return locations, nil
}

func (r *WineRepository) InsertWine(ctx context.Context, wine *domain.WineRecord) error {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO wines (
	title, rating, vintage, type, variety, region_1, region_2, province, country, winery,
	price, abv, description, taste, acidity, sweetness, tannin, body, cost_effectiveness, image, stock
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
RETURNING id
`,
		wine.Title, wine.Rating, wine.Vintage, nullableType(wine.Type), wine.Variety,
		wine.Region1, wine.Region2, wine.Province, wine.Country, wine.Winery,
		wine.Price, wine.ABV, wine.Description, wine.Taste,
		wine.Acidity, wine.Sweetness, wine.Tannin, wine.Body, wine.CostEffectiveness,
		wine.Image, wine.Stock,
	).Scan(&wine.ID)
	if err != nil {
		return fmt.Errorf("insert wine: %w", err)
	}
	return nil
}

func (r *WineRepository) ReplaceStockLocations(ctx context.Context, wineID int64, locations []domain.StockLocation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inventory tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE wine_id = $1`, wineID); err != nil {
		return fmt.Errorf("clear inventory: %w", err)
	}
	for _, loc := range locations {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO inventory (wine_id, shelf, shelf_row, shelf_col) VALUES ($1,$2,$3,$4)
`, wineID, loc.Shelf, loc.Row, loc.Col); err != nil {
			return fmt.Errorf("insert inventory row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inventory tx: %w", err)
	}
	return nil
}

func (r *WineRepository) queryWines(ctx context.Context, query string, args ...any) ([]domain.WineRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query wines", err)
	}
	defer rows.Close()

	var wines []domain.WineRecord
	for rows.Next() {
		wine, err := scanWine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wine row: %w", err)
		}
		wines = append(wines, *wine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wines: %w", err)
	}
	return wines, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWine(row rowScanner) (*domain.WineRecord, error) {
	var (
		wine     domain.WineRecord
		wineType sql.NullString
	)
	err := row.Scan(
		&wine.ID, &wine.Title, &wine.Rating, &wine.Vintage, &wineType, &wine.Variety,
		&wine.Region1, &wine.Region2, &wine.Province, &wine.Country, &wine.Winery,
		&wine.Price, &wine.ABV, &wine.Description, &wine.Taste,
		&wine.Acidity, &wine.Sweetness, &wine.Tannin, &wine.Body, &wine.CostEffectiveness,
		&wine.Image, &wine.Stock,
	)
	if err != nil {
		return nil, err
	}
	wine.Type = domain.WineType(wineType.String)
	return &wine, nil
}

func nullableType(t domain.WineType) any {
	if t == "" {
		return nil
	}
	return string(t)
}
