package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	artifactx "github.com/tanpawarit/trademind/pkg/artifact"
)

const (
	DefaultModelRefFile     = "Modelo_REF.csv"
	DefaultBrandModelFile   = "Marca_Modelo_REF.csv"
	DefaultReleaseDatesFile = "Fecha_Lanzamiento.csv"
)

// CSVSource reads the three ';'-separated reference files from an artifact store.
type CSVSource struct {
	store            artifactx.Store
	prefix           string
	modelRefFile     string
	brandModelFile   string
	releaseDatesFile string
}

func NewCSVSource(store artifactx.Store, prefix string) *CSVSource {
	return &CSVSource{
		store:            store,
		prefix:           strings.Trim(strings.TrimSpace(prefix), "/"),
		modelRefFile:     DefaultModelRefFile,
		brandModelFile:   DefaultBrandModelFile,
		releaseDatesFile: DefaultReleaseDatesFile,
	}
}

// Load reads each file independently; a broken file leaves only its own table empty.
func (s *CSVSource) Load(ctx context.Context) (Tables, error) {
	var (
		tables Tables
		errs   []error
	)

	if rows, err := s.read(ctx, s.modelRefFile, "Modelo", "Modelo_NUM"); err != nil {
		errs = append(errs, err)
	} else {
		tables.ModelCodes = make(map[string]float64, len(rows))
		for _, r := range rows {
			code, err := strconv.ParseFloat(strings.TrimSpace(r[1]), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: model %q: bad code %q", s.modelRefFile, r[0], r[1]))
				continue
			}
			tables.ModelCodes[r[0]] = code
		}
	}

	if rows, err := s.read(ctx, s.brandModelFile, "Marca", "Modelo"); err != nil {
		errs = append(errs, err)
	} else {
		tables.BrandModels = make(map[string][]string)
		for _, r := range rows {
			brand := strings.ToLower(strings.TrimSpace(r[0]))
			if brand == "" {
				continue
			}
			tables.BrandModels[brand] = append(tables.BrandModels[brand], r[1])
		}
	}

	if rows, err := s.read(ctx, s.releaseDatesFile, "Modelo", "Fecha de Lanzamiento"); err != nil {
		errs = append(errs, err)
	} else {
		tables.ReleaseDates = make([]ReleaseEntry, 0, len(rows))
		for _, r := range rows {
			t, err := parseReleaseCell(r[1])
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: model %q: %w", s.releaseDatesFile, r[0], err))
				continue
			}
			tables.ReleaseDates = append(tables.ReleaseDates, ReleaseEntry{Name: r[0], Date: t})
		}
	}

	return tables, errors.Join(errs...)
}

// read returns the requested columns of every data row, in header order of cols.
func (s *CSVSource) read(ctx context.Context, name string, cols ...string) ([][]string, error) {
	path := name
	if s.prefix != "" {
		path = s.prefix + "/" + name
	}
	rc, err := s.store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readColumns(rc, name, cols...)
}

func readColumns(r io.Reader, name string, cols ...string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	idx := make([]int, len(cols))
	for i, col := range cols {
		idx[i] = -1
		for j, h := range header {
			if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == col {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%s: missing column %q", name, col)
		}
	}

	var out [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row := make([]string, len(idx))
		short := false
		for i, j := range idx {
			if j >= len(rec) {
				short = true
				break
			}
			row[i] = strings.TrimSpace(rec[j])
		}
		if short || row[0] == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// parseReleaseCell accepts "2020-10-23" and "2020-10-23 00:00:00".
func parseReleaseCell(raw string) (time.Time, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return time.Time{}, errors.New("empty release date")
	}
	return time.Parse(time.DateOnly, fields[0])
}
