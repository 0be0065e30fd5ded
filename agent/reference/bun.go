package reference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type modelRefRow struct {
	bun.BaseModel `bun:"table:model_ref"`

	Modelo    string  `bun:"modelo,pk"`
	ModeloNum float64 `bun:"modelo_num"`
}

type brandModelRow struct {
	bun.BaseModel `bun:"table:brand_model_ref"`

	Marca  string `bun:"marca"`
	Modelo string `bun:"modelo"`
}

type releaseDateRow struct {
	bun.BaseModel `bun:"table:release_dates"`

	Modelo             string    `bun:"modelo"`
	FechaDeLanzamiento time.Time `bun:"fecha_lanzamiento"`
}

// BunSource reads the reference tables from Postgres.
type BunSource struct {
	db *bun.DB
}

func NewBunSource(db *bun.DB) *BunSource {
	return &BunSource{db: db}
}

// OpenPostgres opens a bun handle over pgdriver for dsn.
func OpenPostgres(dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("reference: postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func (s *BunSource) Load(ctx context.Context) (Tables, error) {
	var (
		tables Tables
		errs   []error
	)

	var refs []modelRefRow
	if err := s.db.NewSelect().Model(&refs).Scan(ctx); err != nil {
		errs = append(errs, fmt.Errorf("select model_ref: %w", err))
	} else {
		tables.ModelCodes = make(map[string]float64, len(refs))
		for _, r := range refs {
			tables.ModelCodes[r.Modelo] = r.ModeloNum
		}
	}

	var brands []brandModelRow
	if err := s.db.NewSelect().Model(&brands).Order("marca", "modelo").Scan(ctx); err != nil {
		errs = append(errs, fmt.Errorf("select brand_model_ref: %w", err))
	} else {
		tables.BrandModels = make(map[string][]string)
		for _, r := range brands {
			brand := strings.ToLower(strings.TrimSpace(r.Marca))
			tables.BrandModels[brand] = append(tables.BrandModels[brand], r.Modelo)
		}
	}

	var releases []releaseDateRow
	if err := s.db.NewSelect().Model(&releases).Order("modelo", "fecha_lanzamiento").Scan(ctx); err != nil {
		errs = append(errs, fmt.Errorf("select release_dates: %w", err))
	} else {
		tables.ReleaseDates = make([]ReleaseEntry, 0, len(releases))
		for _, r := range releases {
			tables.ReleaseDates = append(tables.ReleaseDates, ReleaseEntry{
				Name: r.Modelo,
				Date: time.Date(r.FechaDeLanzamiento.Year(), r.FechaDeLanzamiento.Month(), r.FechaDeLanzamiento.Day(), 0, 0, 0, 0, time.UTC),
			})
		}
	}

	return tables, errors.Join(errs...)
}
