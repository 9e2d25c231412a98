package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// ErrDetailedSchemaRequired is returned by queries that need columns only the
// detailed schema has.
var ErrDetailedSchemaRequired = errors.New("query requires the detailed schema")

const yearMonthExpr = "strftime('%Y-%m', posted_time)"

type bucket struct {
	label string
	below float64 // exclusive upper bound; 0 on the last bucket
}

var (
	saleBuckets = []bucket{
		{"1-3 tỷ", 3e9},
		{"3-5 tỷ", 5e9},
		{"5-10 tỷ", 10e9},
		{">10 tỷ", 0},
	}
	rentBuckets = []bucket{
		{"Dưới 5 triệu", 5e6},
		{"5-10 triệu", 10e6},
		{"10-20 triệu", 20e6},
		{">20 triệu", 0},
	}
)

// area groups are inclusive on the upper bound, like SQL BETWEEN
var areaGroups = []string{"<30", "30-50", "50-100", ">100"}

// DemandRow counts listings per location.
type DemandRow struct {
	District string `json:"district"`
	Count    int    `json:"count"`
}

// BucketCount is one bar of a distribution.
type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution holds every bucket of one location, zeros included.
type Distribution struct {
	Location string        `json:"location"`
	Buckets  []BucketCount `json:"buckets"`
}

// AveragePrice is the mean price for a month and bedroom count.
type AveragePrice struct {
	YearMonth string  `json:"year_month"`
	Bedrooms  int     `json:"bedrooms"`
	AvgPrice  float64 `json:"avg_price"`
}

// PricePerSqm is the mean price per square metre for a month and district.
type PricePerSqm struct {
	YearMonth      string  `json:"year_month"`
	District       string  `json:"district"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
}

// MapPoint is a geolocated listing.
type MapPoint struct {
	Title     string  `json:"title"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Area      float64 `json:"area"`
	Price     int64   `json:"price"`
	IsSelling bool    `json:"is_selling"`
}

// MonthFilter narrows averages to a year and optionally a month. Zero fields
// are ignored.
type MonthFilter struct {
	Year  int
	Month int
}

// Analytics runs the aggregation queries behind the read API.
type Analytics struct {
	db     *sql.DB
	schema Schema
}

// NewAnalytics binds the queries to a table layout.
func NewAnalytics(db *sql.DB, schema Schema) *Analytics {
	return &Analytics{db: db, schema: schema}
}

// ApartmentDemand counts listings per location, busiest first.
func (a *Analytics) ApartmentDemand(ctx context.Context, selling bool) ([]DemandRow, error) {
	builder := sq.Select("location", "COUNT(*) AS num_listings").
		From(a.schema.Table).
		Where(sq.Eq{"is_selling": boolToInt(selling)}).
		GroupBy("location").
		OrderBy("num_listings DESC", "location")

	var out []DemandRow
	err := a.query(ctx, builder, func(rows *sql.Rows) error {
		var row DemandRow
		if err := rows.Scan(&row.District, &row.Count); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

// PriceDistribution counts listings per location and price bucket.
func (a *Analytics) PriceDistribution(ctx context.Context, selling bool) ([]Distribution, error) {
	buckets := rentBuckets
	if selling {
		buckets = saleBuckets
	}

	kase := sq.Case()
	labels := make([]string, 0, len(buckets))
	for _, b := range buckets {
		labels = append(labels, b.label)
		if b.below == 0 {
			kase = kase.Else(sq.Expr("?", b.label))
			continue
		}
		kase = kase.When(sq.Lt{"price": int64(b.below)}, sq.Expr("?", b.label))
	}

	return a.distribution(ctx, kase, selling, labels)
}

// AreaDistribution counts listings per location and area group.
func (a *Analytics) AreaDistribution(ctx context.Context, selling bool) ([]Distribution, error) {
	kase := sq.Case().
		When(sq.Lt{"area": 30}, sq.Expr("?", areaGroups[0])).
		When(sq.LtOrEq{"area": 50}, sq.Expr("?", areaGroups[1])).
		When(sq.LtOrEq{"area": 100}, sq.Expr("?", areaGroups[2])).
		Else(sq.Expr("?", areaGroups[3]))

	return a.distribution(ctx, kase, selling, areaGroups)
}

func (a *Analytics) distribution(ctx context.Context, kase sq.CaseBuilder, selling bool, labels []string) ([]Distribution, error) {
	builder := sq.Select("location").
		Column(sq.Alias(kase, "bucket")).
		Column("COUNT(*)").
		From(a.schema.Table).
		Where(sq.Eq{"is_selling": boolToInt(selling)}).
		GroupBy("location", "bucket").
		OrderBy("location")

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	var out []Distribution
	positions := map[string]int{}
	err := a.query(ctx, builder, func(rows *sql.Rows) error {
		var location, label string
		var count int
		if err := rows.Scan(&location, &label, &count); err != nil {
			return err
		}
		pos, ok := positions[location]
		if !ok {
			d := Distribution{Location: location, Buckets: make([]BucketCount, len(labels))}
			for i, l := range labels {
				d.Buckets[i] = BucketCount{Label: l}
			}
			out = append(out, d)
			pos = len(out) - 1
			positions[location] = pos
		}
		if i, ok := index[label]; ok {
			out[pos].Buckets[i].Count = count
		}
		return nil
	})
	return out, err
}

// AveragePrices returns the mean price per (month, bedrooms).
func (a *Analytics) AveragePrices(ctx context.Context, selling bool, filter MonthFilter) ([]AveragePrice, error) {
	builder := sq.Select(yearMonthExpr+" AS year_month", "bedrooms", "AVG(price)").
		From(a.schema.Table).
		Where(sq.Eq{"is_selling": boolToInt(selling)}).
		GroupBy("year_month", "bedrooms").
		OrderBy("year_month", "bedrooms")
	if filter.Year > 0 {
		builder = builder.Where(sq.Expr("strftime('%Y', posted_time) = ?", fmt.Sprintf("%04d", filter.Year)))
	}
	if filter.Month > 0 {
		builder = builder.Where(sq.Expr("strftime('%m', posted_time) = ?", fmt.Sprintf("%02d", filter.Month)))
	}

	var out []AveragePrice
	err := a.query(ctx, builder, func(rows *sql.Rows) error {
		var row AveragePrice
		if err := rows.Scan(&row.YearMonth, &row.Bedrooms, &row.AvgPrice); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

// PricePerSqm returns the mean price per m² per (month, district).
func (a *Analytics) PricePerSqm(ctx context.Context, selling bool) ([]PricePerSqm, error) {
	if !a.schema.Detailed {
		return nil, ErrDetailedSchemaRequired
	}

	builder := sq.Select(yearMonthExpr+" AS year_month", "district", "AVG(price / area)").
		From(a.schema.Table).
		Where(sq.Eq{"is_selling": boolToInt(selling)}).
		Where(sq.Gt{"area": 0}).
		Where(sq.NotEq{"district": ""}).
		GroupBy("year_month", "district").
		OrderBy("year_month", "district")

	var out []PricePerSqm
	err := a.query(ctx, builder, func(rows *sql.Rows) error {
		var row PricePerSqm
		if err := rows.Scan(&row.YearMonth, &row.District, &row.AvgPricePerSqm); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

// Districts lists the distinct non-empty districts.
func (a *Analytics) Districts(ctx context.Context) ([]string, error) {
	if !a.schema.Detailed {
		return nil, ErrDetailedSchemaRequired
	}

	builder := sq.Select("district").
		Distinct().
		From(a.schema.Table).
		Where(sq.NotEq{"district": ""}).
		OrderBy("district")

	out := []string{}
	err := a.query(ctx, builder, func(rows *sql.Rows) error {
		var d string
		if err := rows.Scan(&d); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// MapPoints returns every listing that carries coordinates.
func (a *Analytics) MapPoints(ctx context.Context) ([]MapPoint, error) {
	if !a.schema.Detailed {
		return nil, ErrDetailedSchemaRequired
	}

	builder := sq.Select("title", "latitude", "longitude", "area", "price", "is_selling").
		From(a.schema.Table).
		Where(sq.NotEq{"latitude": nil, "longitude": nil}).
		OrderBy("id")

	var out []MapPoint
	err := a.query(ctx, builder, func(rows *sql.Rows) error {
		var p MapPoint
		if err := rows.Scan(&p.Title, &p.Latitude, &p.Longitude, &p.Area, &p.Price, &p.IsSelling); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (a *Analytics) query(ctx context.Context, builder sq.SelectBuilder, scan func(*sql.Rows) error) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query %s: %w", a.schema.Table, err)
	}

	for rows.Next() {
		if err := scan(rows); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan row: %w", err)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}
