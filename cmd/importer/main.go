// Command importer loads a wine catalog spreadsheet into Postgres and
// indexes the profile embeddings into qdrant. Run it once per catalog
// revision before starting the API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/xuri/excelize/v2"

	"github.com/podoring/wine-search/internal/bootstrap"
	"github.com/podoring/wine-search/internal/config"
	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/usecase"
	"github.com/podoring/wine-search/internal/observability/logging"
)

const embedBatchSize = 64

func main() {
	var (
		catalogPath = flag.String("catalog", "wines.xlsx", "path to the catalog spreadsheet")
		sheetName   = flag.String("sheet", "", "sheet name (defaults to the first sheet)")
		skipIndex   = flag.Bool("skip-index", false, "insert rows without embedding/indexing")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.Setup("wine-search-importer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	wines, err := readCatalog(*catalogPath, *sheetName)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	logger.Info("catalog_loaded", "path", *catalogPath, "rows", len(wines))

	for i := range wines {
		if err := app.Catalog.InsertWine(ctx, &wines[i]); err != nil {
			log.Fatalf("insert wine %q: %v", wines[i].Title, err)
		}
		if len(wines[i].Locations) > 0 {
			if err := app.Catalog.ReplaceStockLocations(ctx, wines[i].ID, wines[i].Locations); err != nil {
				log.Fatalf("set locations for %q: %v", wines[i].Title, err)
			}
		}
	}
	logger.Info("catalog_inserted", "wines", len(wines))

	if *skipIndex {
		return
	}

	for start := 0; start < len(wines); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(wines) {
			end = len(wines)
		}
		batch := wines[start:end]

		documents := make([]string, len(batch))
		for i, wine := range batch {
			documents[i] = usecase.ProfileDocument(wine)
		}
		vectors, err := app.Embedder.Embed(ctx, documents)
		if err != nil {
			log.Fatalf("embed batch at %d: %v", start, err)
		}
		if err := app.Indexer.IndexWines(ctx, batch, vectors); err != nil {
			log.Fatalf("index batch at %d: %v", start, err)
		}
		logger.Info("batch_indexed", "from", start, "to", end)
	}
	logger.Info("import_done", "wines", len(wines))
}

// Expected column order: title, type, vintage, variety, country, province,
// winery, price, abv, rating, sweetness, acidity, tannin, body,
// description, taste, stock, then optionally shelf, shelf_row, shelf_col.
// The first row is a header and is skipped.
func readCatalog(path, sheet string) ([]domain.WineRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	var wines []domain.WineRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		title := cell(row, 0)
		if title == "" {
			continue
		}
		wine := domain.WineRecord{
			Title:       title,
			Type:        domain.WineType(cell(row, 1)),
			Vintage:     intCell(row, 2),
			Variety:     strCell(row, 3),
			Country:     strCell(row, 4),
			Province:    strCell(row, 5),
			Winery:      strCell(row, 6),
			Price:       floatCell(row, 7),
			ABV:         floatCell(row, 8),
			Rating:      floatCell(row, 9),
			Sweetness:   floatCell(row, 10),
			Acidity:     floatCell(row, 11),
			Tannin:      floatCell(row, 12),
			Body:        floatCell(row, 13),
			Description: strCell(row, 14),
			Taste:       strCell(row, 15),
		}
		if stock := intCell(row, 16); stock != nil {
			wine.Stock = *stock
		}
		if shelf := cell(row, 17); shelf != "" {
			loc := domain.StockLocation{Shelf: shelf}
			if v := intCell(row, 18); v != nil {
				loc.Row = *v
			}
			if v := intCell(row, 19); v != nil {
				loc.Col = *v
			}
			wine.Locations = []domain.StockLocation{loc}
		}
		wines = append(wines, wine)
	}
	return wines, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func strCell(row []string, idx int) *string {
	v := cell(row, idx)
	if v == "" {
		return nil
	}
	return &v
}

func floatCell(row []string, idx int) *float64 {
	raw := cell(row, idx)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func intCell(row []string, idx int) *int {
	raw := cell(row, idx)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
