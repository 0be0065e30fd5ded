package reference

import (
	"strings"
	"time"
)

type builtinRelease struct {
	brand string
	model string
	date  time.Time
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Order matters for partial matching: longer names precede their prefixes.
var builtinReleases = []builtinRelease{
	{"Apple", "iPhone 15", day(2023, 9, 22)},
	{"Apple", "iPhone 14", day(2022, 9, 16)},
	{"Apple", "iPhone 13", day(2021, 9, 24)},
	{"Apple", "iPhone 12", day(2020, 10, 23)},
	{"Apple", "iPhone 11", day(2019, 9, 20)},
	{"Apple", "iPhone XS", day(2018, 9, 21)},
	{"Apple", "iPhone X", day(2017, 11, 3)},
	{"Apple", "iPhone 8", day(2017, 9, 22)},
	{"Apple", "iPhone 7", day(2016, 9, 16)},

	{"Samsung", "Galaxy S24", day(2024, 1, 31)},
	{"Samsung", "Galaxy S23", day(2023, 2, 17)},
	{"Samsung", "Galaxy S22", day(2022, 2, 25)},
	{"Samsung", "Galaxy S21", day(2021, 1, 29)},
	{"Samsung", "Galaxy S20", day(2020, 3, 6)},
	{"Samsung", "Galaxy A53", day(2022, 3, 25)},
	{"Samsung", "Galaxy A13", day(2022, 3, 23)},
	{"Samsung", "Galaxy A12", day(2021, 1, 7)},

	{"Xiaomi", "13 Pro", day(2023, 2, 26)},
	{"Xiaomi", "12 Pro", day(2022, 3, 15)},
	{"Xiaomi", "11T Pro", day(2021, 9, 23)},
	{"Xiaomi", "Redmi Note 12", day(2022, 10, 27)},
	{"Xiaomi", "Redmi Note 11", day(2022, 1, 26)},
	{"Xiaomi", "Redmi Note 10", day(2021, 3, 16)},
	{"Xiaomi", "Redmi 10C", day(2022, 3, 29)},
}

// LookupReleaseDate searches the loaded table, then the built-in table.
//
// Table search: exact "Brand Model", the 5G variant, "Brand Model 5G", then
// the first row containing the model or the full name. Built-in search:
// exact (brand, model), then the first entry of the same brand whose model
// is contained in the requested one.
func (d *Data) LookupReleaseDate(brand, model string, has5g bool) (time.Time, bool) {
	brand = strings.TrimSpace(brand)
	model = strings.TrimSpace(model)
	if model == "" {
		return time.Time{}, false
	}

	if d != nil && len(d.releaseDates) > 0 {
		if t, ok := d.lookupTable(brand, model, has5g); ok {
			return t, true
		}
	}
	return lookupBuiltin(brand, model)
}

// ReleaseDate never fails: unknown devices are assumed two years old.
func (d *Data) ReleaseDate(brand, model string, has5g bool, today time.Time) time.Time {
	if t, ok := d.LookupReleaseDate(brand, model, has5g); ok {
		return t
	}
	y, m, dd := today.Date()
	return time.Date(y-2, m, dd, 0, 0, 0, 0, time.UTC)
}

func (d *Data) lookupTable(brand, model string, has5g bool) (time.Time, bool) {
	fullName := strings.ToLower(brand + " " + model)
	var with5G string
	if has5g && !strings.Contains(model, "5G") {
		with5G = strings.ToLower(model + " 5G")
	}

	candidates := []string{fullName}
	if with5G != "" {
		candidates = append(candidates, with5G, strings.ToLower(brand)+" "+with5G)
	}
	for _, want := range candidates {
		for _, row := range d.releaseDates {
			if strings.ToLower(row.Name) == want {
				return row.Date, true
			}
		}
	}

	lowerModel := strings.ToLower(model)
	for _, row := range d.releaseDates {
		name := strings.ToLower(row.Name)
		if strings.Contains(name, lowerModel) || strings.Contains(name, fullName) {
			return row.Date, true
		}
		if with5G != "" && strings.Contains(name, with5G) {
			return row.Date, true
		}
	}
	return time.Time{}, false
}

func lookupBuiltin(brand, model string) (time.Time, bool) {
	for _, r := range builtinReleases {
		if strings.EqualFold(r.brand, brand) && strings.EqualFold(r.model, model) {
			return r.date, true
		}
	}
	lowerModel := strings.ToLower(model)
	for _, r := range builtinReleases {
		if strings.EqualFold(r.brand, brand) && strings.Contains(lowerModel, strings.ToLower(r.model)) {
			return r.date, true
		}
	}
	return time.Time{}, false
}
