package domain

import "time"

// DateFormat is the calendar-day key used throughout cost accounting.
// ISO dates compare correctly as strings.
const DateFormat = "2006-01-02"

// DailyUsage is one (date, model) token aggregate emitted by a log scanner.
type DailyUsage struct {
	Date   string     `json:"date"` // DateFormat, local calendar day
	Model  string     `json:"model"`
	Tokens TokenUsage `json:"tokens"`
}

// DailyCost is one priced (date, model) row.
type DailyCost struct {
	Date  string  `json:"date"`
	Model string  `json:"model"`
	Cost  float64 `json:"cost"`
}

// CostSnapshot is the cost rollup for one account, replaced atomically
// on each successful scan.
type CostSnapshot struct {
	TodayTotal       float64     `json:"today_total"`
	MonthToDateTotal float64     `json:"month_to_date_total"`
	Currency         string      `json:"currency"`
	Daily            []DailyCost `json:"daily_breakdown"`
	ScannedAt        time.Time   `json:"scanned_at"`
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (c CostSnapshot) Clone() CostSnapshot {
	out := c
	out.Daily = append([]DailyCost(nil), c.Daily...)
	return out
}
