package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/podoring/wine-search/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*WineRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &WineRepository{db: db, filterCap: 100}, mock, func() { _ = db.Close() }
}

func wineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "rating", "vintage", "type", "variety",
		"region_1", "region_2", "province", "country", "winery",
		"price", "abv", "description", "taste",
		"acidity", "sweetness", "tannin", "body", "cost_effectiveness",
		"image", "stock",
	})
}

func addWineRow(rows *sqlmock.Rows, id int64, title string, price float64) *sqlmock.Rows {
	return rows.AddRow(
		id, title, 4.2, 2019, "Red wine", "Merlot",
		nil, nil, nil, "France", "Chateau Test",
		price, 13.5, "dark fruit", "plum and cedar",
		3.0, 2.0, 4.0, 4.0, nil,
		nil, 12,
	)
}

func TestFilterWinesBuildsAndedPredicates(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	priceMax := 50000.0
	sweetnessMax := 2.0
	cond := domain.ParsedConditions{
		PriceMax:     &priceMax,
		Type:         domain.TypeRed,
		SweetnessMax: &sweetnessMax,
	}

	mock.ExpectQuery(`SELECT (.+) FROM wines WHERE price <= \$1 AND type = \$2 AND sweetness <= \$3 ORDER BY rating DESC NULLS LAST LIMIT \$4`).
		WithArgs(50000.0, "Red wine", 2.0, 100).
		WillReturnRows(addWineRow(wineRows(), 1, "Chateau Test", 42000))

	wines, err := repo.FilterWines(context.Background(), cond)
	if err != nil {
		t.Fatalf("FilterWines() error = %v", err)
	}
	if len(wines) != 1 || wines[0].ID != 1 {
		t.Fatalf("unexpected wines: %+v", wines)
	}
	if wines[0].Price == nil || *wines[0].Price != 42000 {
		t.Fatalf("expected price 42000, got %v", wines[0].Price)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFilterWinesAppliesParsedSort(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	cond := domain.ParsedConditions{
		SortBy:    domain.SortByPrice,
		SortOrder: domain.SortDesc,
	}

	mock.ExpectQuery(`SELECT (.+) FROM wines ORDER BY price DESC NULLS LAST LIMIT \$1`).
		WithArgs(100).
		WillReturnRows(addWineRow(wineRows(), 9, "Priciest", 990000))

	wines, err := repo.FilterWines(context.Background(), cond)
	if err != nil {
		t.Fatalf("FilterWines() error = %v", err)
	}
	if len(wines) != 1 || wines[0].ID != 9 {
		t.Fatalf("unexpected wines: %+v", wines)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFilterWinesCountrySubstringMatch(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	cond := domain.ParsedConditions{Country: "France"}

	mock.ExpectQuery(`SELECT (.+) FROM wines WHERE country ILIKE \$1 ORDER BY rating DESC NULLS LAST LIMIT \$2`).
		WithArgs("%France%", 100).
		WillReturnRows(wineRows())

	wines, err := repo.FilterWines(context.Background(), cond)
	if err != nil {
		t.Fatalf("FilterWines() error = %v", err)
	}
	if len(wines) != 0 {
		t.Fatalf("expected empty result, got %d", len(wines))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetWineByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT (.+) FROM wines WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetWineByID(context.Background(), 404)
	if !domain.IsKind(err, domain.ErrWineNotFound) {
		t.Fatalf("expected ErrWineNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMaxPriceEmptyCatalog(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT MAX\(price\) FROM wines`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	max, err := repo.MaxPrice(context.Background())
	if err != nil {
		t.Fatalf("MaxPrice() error = %v", err)
	}
	if max != 0 {
		t.Fatalf("expected 0 for empty catalog, got %g", max)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListStockLocations(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"shelf", "shelf_row", "shelf_col"}).
		AddRow("A", 1, 3).
		AddRow("B", 2, 1)

	mock.ExpectQuery(`SELECT shelf, shelf_row, shelf_col FROM inventory WHERE wine_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	locations, err := repo.ListStockLocations(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListStockLocations() error = %v", err)
	}
	if len(locations) != 2 || locations[0].Shelf != "A" || locations[1].Col != 1 {
		t.Fatalf("unexpected locations: %+v", locations)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertWineReturnsGeneratedID(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO wines`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	wine := domain.WineRecord{Title: "New Bottle", Type: domain.TypeWhite}
	if err := repo.InsertWine(context.Background(), &wine); err != nil {
		t.Fatalf("InsertWine() error = %v", err)
	}
	if wine.ID != 42 {
		t.Fatalf("expected id 42, got %d", wine.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceStockLocationsRewritesInTx(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM inventory WHERE wine_id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO inventory`).
		WithArgs(int64(7), "A", 1, 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceStockLocations(context.Background(), 7, []domain.StockLocation{
		{Shelf: "A", Row: 1, Col: 3},
	})
	if err != nil {
		t.Fatalf("ReplaceStockLocations() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFilterWinesWrapsStoreFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT (.+) FROM wines`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.FilterWines(context.Background(), domain.ParsedConditions{Country: "Chile"})
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
