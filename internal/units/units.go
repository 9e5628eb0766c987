package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownUnit unit label not recognized by a strict converter
var ErrUnknownUnit = errors.New("unknown unit")

// Energy and power
const (
	KWhPerMWh     = 1000.0
	KWhPerGWh     = 1e6
	KVarhPerMVarh = 1000.0
	KWPerMW       = 1000.0
)

// Mass and heat
const (
	KgPerTon    = 1000.0
	KcalPerGcal = 1e6
	GJPerGcal   = 4.1868
	GcalPerGJ   = 0.238846
	MWhPerGcal  = 1.163
	GcalPerMWh  = 0.859845
)

// Period constants
const (
	HoursPerDay     = 24
	HoursPerMonth   = 720
	HoursPerQuarter = 2160
	HoursPerYear    = 8760

	DaysPerMonth   = 30
	DaysPerQuarter = 90
	DaysPerYear    = 365

	MonthsPerQuarter = 3
	QuartersPerYear  = 4
)

func normUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.ReplaceAll(u, "·", "")
	u = strings.ReplaceAll(u, "*", "")
	u = strings.ReplaceAll(u, ".", "")
	u = strings.ReplaceAll(u, " ", "")
	u = strings.ReplaceAll(u, "/", "")
	u = strings.ReplaceAll(u, "³", "3")
	return u
}

func unknown(unit string) error {
	return fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

// ToKWh converts an energy value to kWh
func ToKWh(value float64, unit string) (float64, error) {
	switch normUnit(unit) {
	case "kwh", "квтч", "":
		return value, nil
	case "wh", "втч":
		return value / 1000, nil
	case "mwh", "мвтч":
		return value * KWhPerMWh, nil
	case "gwh", "гвтч":
		return value * KWhPerGWh, nil
	}
	return 0, unknown(unit)
}

// ToMWh converts an energy value to MWh
func ToMWh(value float64, unit string) (float64, error) {
	kwh, err := ToKWh(value, unit)
	if err != nil {
		return 0, err
	}
	return kwh / KWhPerMWh, nil
}

// ToKVarh converts reactive energy to kvarh
func ToKVarh(value float64, unit string) (float64, error) {
	switch normUnit(unit) {
	case "kvarh", "кварч", "":
		return value, nil
	case "mvarh", "мварч":
		return value * KVarhPerMVarh, nil
	}
	return 0, unknown(unit)
}

// ToM3 converts a volume to cubic meters
func ToM3(value float64, unit string) (float64, error) {
	switch normUnit(unit) {
	case "m3", "м3", "куб", "кубм", "":
		return value, nil
	case "тысм3", "тыскубм", "thsm3", "thousandm3", "km3":
		return value * 1000, nil
	case "л", "l", "литр", "liter", "litre":
		return value * 0.001, nil
	}
	return 0, unknown(unit)
}

// ToTon converts a mass to metric tons
func ToTon(value float64, unit string) (float64, error) {
	switch normUnit(unit) {
	case "t", "т", "тонн", "тонна", "ton", "tonne", "":
		return value, nil
	case "kg", "кг":
		return value / KgPerTon, nil
	}
	return 0, unknown(unit)
}

// ToGcal converts heat to Gcal
func ToGcal(value float64, unit string) (float64, error) {
	switch normUnit(unit) {
	case "gcal", "гкал", "":
		return value, nil
	case "mcal", "мкал":
		return value / 1000, nil
	case "kcal", "ккал":
		return value / KcalPerGcal, nil
	case "gj", "гдж":
		return value * GcalPerGJ, nil
	case "mj", "мдж":
		return value / 1000 * GcalPerGJ, nil
	case "mwh", "мвтч":
		return value * GcalPerMWh, nil
	}
	return 0, unknown(unit)
}

// ToGJ converts heat to GJ
func ToGJ(value float64, unit string) (float64, error) {
	if n := normUnit(unit); n == "gj" || n == "гдж" {
		return value, nil
	}
	gcal, err := ToGcal(value, unit)
	if err != nil {
		return 0, err
	}
	return gcal * GJPerGcal, nil
}

// NormalizeEnergyToKWh best-effort conversion by substring of the unit label.
// ok is false when the label was not understood and value is returned as is.
func NormalizeEnergyToKWh(value float64, unit string) (float64, bool) {
	u := normUnit(unit)
	switch {
	case strings.Contains(u, "gwh") || strings.Contains(u, "гвт"):
		return value * KWhPerGWh, true
	case strings.Contains(u, "mwh") || strings.Contains(u, "мвт"):
		return value * KWhPerMWh, true
	case strings.Contains(u, "kwh") || strings.Contains(u, "квт"):
		return value, true
	}
	return value, false
}

// NormalizeVolumeToM3 best-effort volume conversion
func NormalizeVolumeToM3(value float64, unit string) (float64, bool) {
	u := normUnit(unit)
	switch {
	case strings.Contains(u, "тыс") || strings.Contains(u, "ths") || strings.Contains(u, "thousand"):
		return value * 1000, true
	case strings.Contains(u, "m3") || strings.Contains(u, "м3") || strings.Contains(u, "куб"):
		return value, true
	case strings.Contains(u, "литр") || strings.Contains(u, "liter") || u == "л" || u == "l":
		return value * 0.001, true
	}
	return value, false
}

// NormalizeMassToTon best-effort mass conversion
func NormalizeMassToTon(value float64, unit string) (float64, bool) {
	u := normUnit(unit)
	switch {
	case strings.Contains(u, "кг") || strings.Contains(u, "kg"):
		return value / KgPerTon, true
	case strings.Contains(u, "тон") || strings.Contains(u, "ton") || u == "т" || u == "t":
		return value, true
	}
	return value, false
}

// HoursInPeriod hours in a named period
func HoursInPeriod(period string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "day":
		return HoursPerDay, nil
	case "month":
		return HoursPerMonth, nil
	case "quarter":
		return HoursPerQuarter, nil
	case "year":
		return HoursPerYear, nil
	}
	return 0, fmt.Errorf("unknown period %q", period)
}

// MonthsToQuarters converts a month count to quarters
func MonthsToQuarters(months float64) float64 {
	return months / MonthsPerQuarter
}

// QuartersToMonths converts a quarter count to months
func QuartersToMonths(quarters float64) float64 {
	return quarters * MonthsPerQuarter
}

// MonthToQuarter maps 1..12 to 1..4; out of range yields 0.
func MonthToQuarter(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return (month-1)/3 + 1
}

// QuarterKey formats "{year}-Q{q}"
func QuarterKey(year, quarter int) string {
	return fmt.Sprintf("%d-Q%d", year, quarter)
}

// ParseQuarterKey parses "{year}-Q{q}"
func ParseQuarterKey(key string) (year, quarter int, ok bool) {
	idx := strings.LastIndex(key, "-Q")
	if idx <= 0 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(key[:idx])
	if err != nil {
		return 0, 0, false
	}
	q, err := strconv.Atoi(key[idx+2:])
	if err != nil || q < 1 || q > 4 {
		return 0, 0, false
	}
	return y, q, true
}
