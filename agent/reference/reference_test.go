package reference

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	artifactx "github.com/tanpawarit/trademind/pkg/artifact"
)

type mapStore map[string]string

func (m mapStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	body, ok := m[name]
	if !ok {
		return nil, artifactx.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func fixtureStore() mapStore {
	return mapStore{
		"data/Modelo_REF.csv": "Modelo;Modelo_NUM\n" +
			"iPhone 12;12\n" +
			"Galaxy S21 5G;41\n" +
			"Galaxy S21;40\n",
		"data/Marca_Modelo_REF.csv": "Marca;Modelo\n" +
			"Apple;Apple iPhone 12\n" +
			"Samsung;Samsung Galaxy S21\n" +
			"Samsung;Samsung Galaxy S21 5G\n",
		"data/Fecha_Lanzamiento.csv": "Modelo;Fecha de Lanzamiento\n" +
			"Apple iPhone 12;2020-10-23 00:00:00\n" +
			"Samsung Galaxy S21 5G;2021-01-29\n" +
			"Google Pixel 7;2022-10-13\n",
	}
}

func TestCSVSourceLoad(t *testing.T) {
	t.Parallel()

	data := Load(context.Background(), NewCSVSource(fixtureStore(), "data"))

	code, ok := data.ModelCode("Galaxy S21 5G")
	require.True(t, ok)
	assert.Equal(t, 41.0, code)

	_, ok = data.ModelCode("galaxy s21")
	assert.False(t, ok, "model codes are exact-match")

	assert.Equal(t, []string{"Samsung Galaxy S21", "Samsung Galaxy S21 5G"}, data.ModelsForBrand("SAMSUNG"))
	assert.Equal(t, []string{"apple", "samsung"}, data.Brands())
}

func TestCSVSourceDegradesPerFile(t *testing.T) {
	t.Parallel()

	store := fixtureStore()
	delete(store, "data/Marca_Modelo_REF.csv")
	store["data/Modelo_REF.csv"] = "Nombre;Codigo\nx;1\n"

	tables, err := NewCSVSource(store, "data").Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifactx.ErrNotFound))
	assert.Empty(t, tables.ModelCodes)
	assert.Empty(t, tables.BrandModels)
	assert.Len(t, tables.ReleaseDates, 3)
}

func TestLoadNilSourceIsEmpty(t *testing.T) {
	t.Parallel()

	data := Load(context.Background(), nil)
	_, ok := data.ModelCode("iPhone 12")
	assert.False(t, ok)
	assert.Empty(t, data.ModelsForBrand("apple"))
}

func TestLookupReleaseDate(t *testing.T) {
	t.Parallel()

	data := Load(context.Background(), NewCSVSource(fixtureStore(), "data"))

	cases := []struct {
		name  string
		brand string
		model string
		has5g bool
		want  time.Time
		found bool
	}{
		{"exact full name", "Apple", "iPhone 12", false, day(2020, 10, 23), true},
		{"5g variant", "Samsung", "Galaxy S21", true, day(2021, 1, 29), true},
		{"case-insensitive row", "google", "pixel 7", false, day(2022, 10, 13), true},
		{"partial row", "Apple", "iPhone", false, day(2020, 10, 23), true},
		{"builtin exact", "Xiaomi", "Redmi Note 11", false, day(2022, 1, 26), true},
		{"builtin partial", "Samsung", "Galaxy S23 Ultra", false, day(2023, 2, 17), true},
		{"builtin longest prefix first", "Apple", "iPhone XS Max", false, day(2018, 9, 21), true},
		{"unknown", "Oppo", "Find X9", false, time.Time{}, false},
		{"empty model", "Apple", "", false, time.Time{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := data.LookupReleaseDate(tc.brand, tc.model, tc.has5g)
			assert.Equal(t, tc.found, ok)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

func TestReleaseDateDefaultsToTwoYearsAgo(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	got := New(Tables{}).ReleaseDate("Oppo", "Find X9", false, today)
	assert.Equal(t, day(2022, 6, 15), got)
}

func TestNewCopiesTables(t *testing.T) {
	t.Parallel()

	src := Tables{
		ModelCodes:  map[string]float64{"iPhone 12": 12},
		BrandModels: map[string][]string{"Apple": {"Apple iPhone 12"}},
	}
	data := New(src)
	src.ModelCodes["iPhone 12"] = 99
	src.BrandModels["Apple"][0] = "mutated"

	code, _ := data.ModelCode("iPhone 12")
	assert.Equal(t, 12.0, code)
	models := data.ModelsForBrand("apple")
	models[0] = "also mutated"
	assert.Equal(t, []string{"Apple iPhone 12"}, data.ModelsForBrand("apple"))
}
