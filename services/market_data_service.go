package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurniadi/uw-tracker-backend/config"
	"github.com/kurniadi/uw-tracker-backend/models"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

const defaultMarketDataBaseURL = "https://www.alphavantage.co/query"

// jakartaSuffix marks a symbol as listed on the Indonesia Stock Exchange for
// the upstream provider.
const jakartaSuffix = ".JK"

// MarketDataService proxies price data from the upstream market-data provider,
// spacing requests to respect the provider's per-minute quota.
type MarketDataService struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	rateLimiter *shared.RequestRateLimiter
	maxRetries  int
	metrics     *shared.OperationMetrics
}

// NewMarketDataService creates the provider client with pooled connections and
// a shared rate limiter.
func NewMarketDataService(apiKey string, cfg *config.MarketDataConfig, metrics *shared.OperationMetrics) *MarketDataService {
	if cfg == nil {
		cfg = config.DefaultMarketDataConfig()
	}
	return &MarketDataService{
		apiKey:      apiKey,
		baseURL:     defaultMarketDataBaseURL,
		client:      shared.NewPooledHTTPClient(cfg.RequestTimeout),
		rateLimiter: shared.NewRequestRateLimiter(cfg.MinimumDelay),
		maxRetries:  cfg.MaxRetries,
		metrics:     metrics,
	}
}

// FormatStockSymbol upper-cases a ticker and appends the exchange suffix when
// it is missing. Symbols that already carry a suffix pass through unchanged.
func FormatStockSymbol(symbol string) string {
	formatted := strings.ToUpper(strings.TrimSpace(symbol))
	if formatted == "" {
		return formatted
	}
	if strings.Contains(formatted, ".") {
		return formatted
	}
	return formatted + jakartaSuffix
}

// GetDailySeries fetches the daily price series for a symbol.
func (s *MarketDataService) GetDailySeries(ctx context.Context, symbol string) (series *models.PriceSeries, err error) {
	defer s.record("daily", time.Now(), &err)

	formattedSymbol := FormatStockSymbol(symbol)
	payload, err := s.query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {formattedSymbol},
		"outputsize": {"compact"},
	})
	if err != nil {
		return nil, err
	}

	return parsePriceSeries(payload, formattedSymbol, "Time Series (Daily)", "")
}

// GetIntradaySeries fetches the intraday price series for a symbol at the
// given bar interval, e.g. "5min".
func (s *MarketDataService) GetIntradaySeries(ctx context.Context, symbol, interval string) (series *models.PriceSeries, err error) {
	defer s.record("intraday", time.Now(), &err)

	if !validIntradayInterval(interval) {
		return nil, shared.NewValidationError("market_intraday", fmt.Sprintf("unsupported interval %q", interval))
	}

	formattedSymbol := FormatStockSymbol(symbol)
	payload, err := s.query(ctx, url.Values{
		"function":   {"TIME_SERIES_INTRADAY"},
		"symbol":     {formattedSymbol},
		"interval":   {interval},
		"outputsize": {"compact"},
	})
	if err != nil {
		return nil, err
	}

	seriesKey := fmt.Sprintf("Time Series (%s)", interval)
	return parsePriceSeries(payload, formattedSymbol, seriesKey, interval)
}

// GetPerformanceChart builds the post-listing performance view from the daily
// series: the last daysBack closes with the cumulative change against the
// first close of the window.
func (s *MarketDataService) GetPerformanceChart(ctx context.Context, symbol string, daysBack int) (chart *models.PerformanceChart, err error) {
	defer s.record("performance", time.Now(), &err)

	if daysBack <= 0 {
		daysBack = 30
	}

	series, err := s.GetDailySeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	points := series.Points
	if len(points) > daysBack {
		points = points[len(points)-daysBack:]
	}

	chart = &models.PerformanceChart{
		Symbol:   series.Symbol,
		DaysBack: daysBack,
		Points:   make([]models.PerformancePoint, 0, len(points)),
	}
	if len(points) == 0 {
		return chart, nil
	}

	baseClose := points[0].Close
	for _, point := range points {
		changePercent := 0.0
		if baseClose != 0 {
			changePercent = (point.Close - baseClose) / baseClose * 100
		}
		chart.Points = append(chart.Points, models.PerformancePoint{
			Date:          point.Date,
			Close:         point.Close,
			ChangePercent: changePercent,
		})
	}
	return chart, nil
}

func (s *MarketDataService) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	if s.apiKey == "" {
		return nil, shared.NewValidationError("market_query", "market data API key is not configured")
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, shared.NewNetworkError("market_query", err)
	}

	params.Set("apikey", s.apiKey)
	requestURL := s.baseURL + "?" + params.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, shared.NewNetworkError("market_query", err)
	}
	shared.SetJSONRequestHeaders(request)

	response, err := shared.ExecuteHTTPRequestWithRetry(s.client, request, s.maxRetries)
	if err != nil {
		return nil, shared.NewNetworkError("market_query", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, shared.NewNetworkError("market_query", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewNetworkError("market_query", fmt.Errorf("malformed provider response: %w", err))
	}

	// the provider reports quota and symbol errors inside a 200 response
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if raw, exists := payload[key]; exists {
			var message string
			_ = json.Unmarshal(raw, &message)
			logrus.WithFields(logrus.Fields{
				"provider_field": key,
				"message":        message,
			}).Warn("Market data provider rejected request")
			return nil, shared.NewNetworkError("market_query", fmt.Errorf("provider error: %s", message))
		}
	}

	return payload, nil
}

func parsePriceSeries(payload map[string]json.RawMessage, symbol, seriesKey, interval string) (*models.PriceSeries, error) {
	raw, exists := payload[seriesKey]
	if !exists {
		return nil, shared.NewNotFoundError("market_series")
	}

	var bars map[string]map[string]string
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, shared.NewNetworkError("market_series", fmt.Errorf("malformed time series: %w", err))
	}

	series := &models.PriceSeries{
		Symbol:   symbol,
		Interval: interval,
		Points:   make([]models.PricePoint, 0, len(bars)),
	}
	series.LastRefreshed = extractLastRefreshed(payload)

	for date, fields := range bars {
		series.Points = append(series.Points, models.PricePoint{
			Date:   date,
			Open:   parseProviderFloat(fields["1. open"]),
			High:   parseProviderFloat(fields["2. high"]),
			Low:    parseProviderFloat(fields["3. low"]),
			Close:  parseProviderFloat(fields["4. close"]),
			Volume: parseProviderInt(fields["5. volume"]),
		})
	}

	// provider maps are unordered; charts want oldest first
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date < series.Points[j].Date
	})
	return series, nil
}

func extractLastRefreshed(payload map[string]json.RawMessage) string {
	raw, exists := payload["Meta Data"]
	if !exists {
		return ""
	}
	var meta map[string]string
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ""
	}
	for key, value := range meta {
		if strings.Contains(key, "Last Refreshed") {
			return value
		}
	}
	return ""
}

func parseProviderFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseProviderInt(value string) int64 {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func validIntradayInterval(interval string) bool {
	switch interval {
	case "1min", "5min", "15min", "30min", "60min":
		return true
	}
	return false
}

func (s *MarketDataService) record(operation string, start time.Time, err *error) {
	s.metrics.Record("market."+operation, time.Since(start), *err)
}
