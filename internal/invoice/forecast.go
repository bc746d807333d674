package invoice

import (
	"time"

	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

// FillForecast lays the collaborator's rows onto every day from start for
// horizonDays days. Days without a row get zero inflow and outflow, repeated
// dates are summed, and rows outside the window are dropped.
func FillForecast(rows []ForecastRow, start time.Time, horizonDays int) ([]ForecastDay, error) {
	if horizonDays <= 0 {
		return nil, nil
	}

	start = datetime.Truncate(start)
	byDate := make(map[string]*ForecastDay, horizonDays)
	days := make([]ForecastDay, horizonDays)
	for i := range days {
		days[i].Date = start.AddDate(0, 0, i)
		byDate[datetime.FormatDate(days[i].Date)] = &days[i]
	}

	for _, row := range rows {
		date, err := datetime.ParseDate(row.Date)
		if err != nil {
			return nil, validation.Errorf("date", "forecast date %q must be in YYYY-MM-DD format", row.Date)
		}
		day, ok := byDate[datetime.FormatDate(date)]
		if !ok {
			continue
		}
		day.Inflow += row.Inflow
		day.Outflow += row.Outflow
	}

	return days, nil
}

// IndexOf returns the position of date within a filled forecast.
func IndexOf(days []ForecastDay, date time.Time) (int, bool) {
	if len(days) == 0 {
		return 0, false
	}
	idx := datetime.DaysBetween(days[0].Date, date)
	if idx < 0 || idx >= len(days) {
		return 0, false
	}
	return idx, true
}
