package models

// PricePoint is one bar of a price time series from the market-data provider.
type PricePoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// PriceSeries is a daily or intraday series for one symbol.
type PriceSeries struct {
	Symbol        string       `json:"symbol"`
	Interval      string       `json:"interval,omitempty"`
	LastRefreshed string       `json:"last_refreshed,omitempty"`
	Points        []PricePoint `json:"points"`
}

// PerformancePoint is one chart sample: closing price plus the cumulative
// change against the first close of the window.
type PerformancePoint struct {
	Date          string  `json:"date"`
	Close         float64 `json:"close"`
	ChangePercent float64 `json:"change_percent"`
}

// PerformanceChart is the post-listing performance view for one symbol.
type PerformanceChart struct {
	Symbol   string             `json:"symbol"`
	DaysBack int                `json:"days_back"`
	Points   []PerformancePoint `json:"points"`
}
