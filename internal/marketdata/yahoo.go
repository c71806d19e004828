package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// exchangeSuffixes maps exchange codes to Yahoo Finance ticker suffixes.
var exchangeSuffixes = map[string]string{
	"TSX":      ".TO",
	"TSXV":     ".V",
	"LSE":      ".L",
	"HKEX":     ".HK",
	"ASX":      ".AX",
	"NSE":      ".NS",
	"BSE":      ".BO",
	"SGX":      ".SI",
	"KRX":      ".KS",
	"JPX":      ".T",
	"XETRA":    ".DE",
	"SIX":      ".SW",
	"EURONEXT": ".PA",
}

type yahooMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooChartResponse is the v8 chart API response, reduced to the quote metadata.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta yahooMeta `json:"meta"`
		} `json:"result"`
		Error *yahooChartError `json:"error"`
	} `json:"chart"`
}

// YahooProvider prices stocks, ETFs, bonds and REITs from Yahoo Finance
// chart quotes, converting from the listing currency when needed.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	forex      *ForexConverter
}

// NewYahooProvider creates a Yahoo Finance provider. An empty baseURL uses
// the public chart endpoint.
func NewYahooProvider(httpClient *http.Client, baseURL string) *YahooProvider {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &YahooProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
		forex:      NewForexConverter(httpClient, baseURL),
	}
}

// Name returns the provider's display name.
func (p *YahooProvider) Name() string { return "Yahoo Finance" }

// Supports returns true for stock, etf, bond, and reit asset types.
func (p *YahooProvider) Supports(assetType models.AssetType) bool {
	switch assetType {
	case models.AssetTypeStock, models.AssetTypeETF, models.AssetTypeBond, models.AssetTypeREIT:
		return true
	default:
		return false
	}
}

// yahooTicker converts an asset to a Yahoo-compatible ticker. ProviderSymbol
// wins; otherwise the exchange suffix is appended to the symbol.
func yahooTicker(asset models.Asset) string {
	if asset.ProviderSymbol != "" {
		return asset.ProviderSymbol
	}
	if suffix, ok := exchangeSuffixes[strings.ToUpper(asset.Exchange)]; ok {
		return asset.Symbol + suffix
	}
	return asset.Symbol
}

// GetPrice fetches the regular market price of asset and converts it to currency.
func (p *YahooProvider) GetPrice(ctx context.Context, asset models.Asset, currency string) (decimal.Decimal, error) {
	meta, err := p.fetchMeta(ctx, yahooTicker(asset))
	if err != nil {
		return decimal.Zero, err
	}
	if meta.RegularMarketPrice <= 0 {
		return decimal.Zero, fmt.Errorf("%w: zero price for %s", ErrNoPrice, meta.Symbol)
	}

	price := decimal.NewFromFloat(meta.RegularMarketPrice)
	from := meta.Currency
	if from == "" {
		from = asset.Currency
	}
	return p.forex.Convert(ctx, price, from, currency)
}

// GetPrices fetches each asset's chart quote in turn.
func (p *YahooProvider) GetPrices(ctx context.Context, assets []models.Asset, currency string) (map[string]decimal.Decimal, error) {
	return fetchEach(ctx, assets, currency, p.GetPrice)
}

func (p *YahooProvider) fetchMeta(ctx context.Context, ticker string) (yahooMeta, error) {
	return fetchChartMeta(ctx, p.httpClient, p.baseURL, ticker)
}

// fetchChartMeta reads the quote metadata of one ticker from the chart API.
func fetchChartMeta(ctx context.Context, client *http.Client, baseURL, ticker string) (yahooMeta, error) {
	url := baseURL + "/" + ticker + "?interval=1d&range=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return yahooMeta{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := client.Do(req)
	if err != nil {
		return yahooMeta{}, fmt.Errorf("http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return yahooMeta{}, fmt.Errorf("%w: %s not found", ErrNoPrice, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return yahooMeta{}, fmt.Errorf("request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return yahooMeta{}, fmt.Errorf("decoding response for %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return yahooMeta{}, fmt.Errorf("%w: chart error for %s: %s: %s", ErrNoPrice, ticker, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return yahooMeta{}, fmt.Errorf("%w: no results for %s", ErrNoPrice, ticker)
	}
	return chart.Chart.Result[0].Meta, nil
}
