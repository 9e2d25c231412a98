package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"RealEstateCrawler/internal/domain"
)

func openStore(t *testing.T, schema Schema) *SQLiteStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "listings.db"), schema, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(d int) time.Time {
	return time.Date(2024, time.February, d, 0, 0, 0, 0, time.UTC)
}

func listing(title string, price int64, area float64) domain.ListingRecord {
	return domain.ListingRecord{
		Title:      title,
		Price:      price,
		Area:       area,
		Location:   "Quận Sơn Trà, Đà Nẵng",
		Bedrooms:   2,
		Bathrooms:  1,
		PostedTime: day(10),
		IsSelling:  true,
	}
}

func TestAcceptBatchDeduplicates(t *testing.T) {
	t.Parallel()

	store := openStore(t, Detailed)
	ctx := context.Background()

	first := listing("Căn hộ A", 2_000_000_000, 60)
	first.PropertyCode = "P1"
	first.Street = "12 Võ Văn Kiệt"

	sameCode := listing("Căn hộ A (đăng lại)", 2_100_000_000, 60)
	sameCode.PropertyCode = "P1"

	sameComposite := listing("căn hộ  A", 1_900_000_000, 60)
	sameComposite.Street = "12 Võ Văn Kiệt"

	distinct := listing("Căn hộ B", 3_000_000_000, 80)

	outcomes, err := store.AcceptBatch(ctx, []domain.ListingRecord{first, sameCode, sameComposite, distinct})
	if err != nil {
		t.Fatalf("AcceptBatch error: %v", err)
	}

	want := []domain.SinkOutcome{
		domain.OutcomeInserted,
		domain.OutcomeDuplicateSkipped,
		domain.OutcomeDuplicateSkipped,
		domain.OutcomeInserted,
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("outcome %d: want %s, got %s", i, want[i], outcomes[i])
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	var price int64
	if err := store.db.QueryRowContext(ctx, "SELECT price FROM danang_batdongsan WHERE property_code = 'P1'").Scan(&price); err != nil {
		t.Fatalf("query P1: %v", err)
	}
	if price != 2_000_000_000 {
		t.Fatalf("first record must win, stored price %d", price)
	}
}

func TestAcceptBatchSeedsFromStoredRows(t *testing.T) {
	t.Parallel()

	store := openStore(t, Detailed)
	ctx := context.Background()

	rec := listing("Căn hộ A", 2_000_000_000, 60)
	rec.PropertyCode = "P1"
	if out, err := store.Accept(ctx, rec); err != nil || out != domain.OutcomeInserted {
		t.Fatalf("first Accept: %s, %v", out, err)
	}

	again := rec
	again.Price = 5_000_000_000
	if out, err := store.Accept(ctx, again); err != nil || out != domain.OutcomeDuplicateSkipped {
		t.Fatalf("second Accept: %s, %v", out, err)
	}

	noCode := rec
	noCode.PropertyCode = ""
	if out, err := store.Accept(ctx, noCode); err != nil || out != domain.OutcomeDuplicateSkipped {
		t.Fatalf("composite match after reload: %s, %v", out, err)
	}
}

func TestBasicSchemaStoresIndexFields(t *testing.T) {
	t.Parallel()

	store := openStore(t, Basic)
	ctx := context.Background()

	rec := listing("Căn hộ A", 2_000_000_000, 60)
	rec.PropertyCode = "ignored"
	rec.Street = "ignored"

	if _, err := store.AcceptBatch(ctx, []domain.ListingRecord{rec, rec}); err != nil {
		t.Fatalf("AcceptBatch error: %v", err)
	}

	var title, posted string
	var selling bool
	row := store.db.QueryRowContext(ctx, "SELECT title, posted_time, is_selling FROM danang_apartments")
	if err := row.Scan(&title, &posted, &selling); err != nil {
		t.Fatalf("scan row: %v", err)
	}
	if title != "Căn hộ A" || posted != "2024-02-10" || !selling {
		t.Fatalf("unexpected row: %s %s %v", title, posted, selling)
	}

	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestDetailedSchemaStoresOptionalFields(t *testing.T) {
	t.Parallel()

	store := openStore(t, Detailed)
	ctx := context.Background()

	withCoords := listing("Có toạ độ", 2_000_000_000, 60)
	withCoords.Coordinates = &domain.Coordinates{Latitude: 16.06, Longitude: 108.23}
	withCoords.District = "Quận Sơn Trà"
	without := listing("Không toạ độ", 2_000_000_000, 60)

	if _, err := store.AcceptBatch(ctx, []domain.ListingRecord{withCoords, without}); err != nil {
		t.Fatalf("AcceptBatch error: %v", err)
	}

	var lat sql.NullFloat64
	var code sql.NullString
	row := store.db.QueryRowContext(ctx, "SELECT latitude, property_code FROM danang_batdongsan WHERE title = ?", "Không toạ độ")
	if err := row.Scan(&lat, &code); err != nil {
		t.Fatalf("scan row: %v", err)
	}
	if lat.Valid || code.Valid {
		t.Fatalf("absent fields should be NULL: %+v %+v", lat, code)
	}
}

func TestAcceptBatchConcurrentCallers(t *testing.T) {
	t.Parallel()

	store := openStore(t, Detailed)
	ctx := context.Background()

	rec := listing("Căn hộ A", 2_000_000_000, 60)
	rec.PropertyCode = "P1"

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Accept(ctx, rec); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Accept error: %v", err)
	}

	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected exactly one stored row, got %d", n)
	}
}

func TestSchemaByName(t *testing.T) {
	t.Parallel()

	if s, err := SchemaByName("basic"); err != nil || s.Table != "danang_apartments" {
		t.Fatalf("basic: %+v, %v", s, err)
	}
	if s, err := SchemaByName("Detailed"); err != nil || s.Table != "danang_batdongsan" {
		t.Fatalf("detailed: %+v, %v", s, err)
	}
	if _, err := SchemaByName("v3"); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}
