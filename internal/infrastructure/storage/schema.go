package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"RealEstateCrawler/internal/domain"
)

// isoDate is the on-disk form of posted_time; it sorts and works with strftime.
const isoDate = "2006-01-02"

// Schema describes one persisted table layout. The two layouts are separate
// targets: a database created with one is never read as the other.
type Schema struct {
	Name     string
	Table    string
	Detailed bool
}

var (
	// Basic stores the index-page fields only.
	Basic = Schema{Name: "basic", Table: "danang_apartments"}
	// Detailed adds address parts, property code, coordinates and description.
	Detailed = Schema{Name: "detailed", Table: "danang_batdongsan", Detailed: true}
)

// SchemaByName resolves "basic" or "detailed".
func SchemaByName(name string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Basic.Name:
		return Basic, nil
	case Detailed.Name, "":
		return Detailed, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q", name)
	}
}

var basicColumns = []string{
	"title", "price", "area", "location", "bedrooms", "bathrooms", "posted_time", "is_selling",
}

var detailColumns = []string{
	"street", "ward", "district", "city", "property_code", "latitude", "longitude", "description",
}

// Columns lists the insertable columns in order.
func (s Schema) Columns() []string {
	cols := append([]string(nil), basicColumns...)
	if s.Detailed {
		cols = append(cols, detailColumns...)
	}
	return cols
}

// DDL returns the statements creating the table and its indexes.
func (s Schema) DDL() []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.Table)
	b.WriteString("  id INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	b.WriteString("  title TEXT NOT NULL,\n")
	b.WriteString("  price INTEGER NOT NULL,\n")
	b.WriteString("  area REAL NOT NULL,\n")
	b.WriteString("  location TEXT NOT NULL,\n")
	b.WriteString("  bedrooms INTEGER NOT NULL DEFAULT 0,\n")
	b.WriteString("  bathrooms INTEGER NOT NULL DEFAULT 0,\n")
	b.WriteString("  posted_time TEXT NOT NULL,\n")
	b.WriteString("  is_selling INTEGER NOT NULL")
	if s.Detailed {
		b.WriteString(",\n  street TEXT NOT NULL DEFAULT '',\n")
		b.WriteString("  ward TEXT NOT NULL DEFAULT '',\n")
		b.WriteString("  district TEXT NOT NULL DEFAULT '',\n")
		b.WriteString("  city TEXT NOT NULL DEFAULT '',\n")
		b.WriteString("  property_code TEXT,\n")
		b.WriteString("  latitude REAL,\n")
		b.WriteString("  longitude REAL,\n")
		b.WriteString("  description TEXT NOT NULL DEFAULT ''")
	}
	b.WriteString("\n)")

	stmts := []string{
		b.String(),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_selling ON %[1]s (is_selling, location)", s.Table),
	}
	if s.Detailed {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_property_code ON %[1]s (property_code) WHERE property_code IS NOT NULL",
			s.Table))
	}
	return stmts
}

// Values renders rec in Columns order.
func (s Schema) Values(rec domain.ListingRecord) []any {
	values := []any{
		rec.Title,
		rec.Price,
		rec.Area,
		rec.Location,
		rec.Bedrooms,
		rec.Bathrooms,
		rec.PostedTime.Format(isoDate),
		boolToInt(rec.IsSelling),
	}
	if !s.Detailed {
		return values
	}

	code := sql.NullString{String: strings.TrimSpace(rec.PropertyCode)}
	code.Valid = code.String != ""

	var lat, lng sql.NullFloat64
	if rec.Coordinates != nil {
		lat = sql.NullFloat64{Float64: rec.Coordinates.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: rec.Coordinates.Longitude, Valid: true}
	}

	return append(values,
		rec.Street,
		rec.Ward,
		rec.District,
		rec.City,
		code,
		lat,
		lng,
		rec.Description,
	)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
