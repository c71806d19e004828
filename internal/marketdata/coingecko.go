package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3/simple/price"

// coinIDs maps ticker symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"USDT":  "tether",
	"USDC":  "usd-coin",
}

// CoinGeckoProvider prices cryptocurrencies from the CoinGecko simple price API.
type CoinGeckoProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewCoinGeckoProvider creates a CoinGecko provider. An empty baseURL uses
// the public endpoint.
func NewCoinGeckoProvider(httpClient *http.Client, baseURL string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = coinGeckoBaseURL
	}
	return &CoinGeckoProvider{httpClient: httpClient, baseURL: baseURL}
}

// Name returns the provider's display name.
func (p *CoinGeckoProvider) Name() string { return "CoinGecko" }

// Supports returns true for crypto asset type only.
func (p *CoinGeckoProvider) Supports(assetType models.AssetType) bool {
	return assetType == models.AssetTypeCrypto
}

// coinID resolves the CoinGecko id of asset. Unknown symbols fall back to
// the lower-cased symbol.
func coinID(asset models.Asset) string {
	if asset.ProviderSymbol != "" {
		return asset.ProviderSymbol
	}
	if id, ok := coinIDs[strings.ToUpper(asset.Symbol)]; ok {
		return id
	}
	return strings.ToLower(asset.Symbol)
}

// GetPrice fetches the price of one coin.
func (p *CoinGeckoProvider) GetPrice(ctx context.Context, asset models.Asset, currency string) (decimal.Decimal, error) {
	prices, err := p.GetPrices(ctx, []models.Asset{asset}, currency)
	if price, ok := prices[asset.ID]; ok {
		return price, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: %s", ErrNoPrice, asset.Symbol)
	}
	return decimal.Zero, err
}

// GetPrices fetches all coins in a single request.
func (p *CoinGeckoProvider) GetPrices(ctx context.Context, assets []models.Asset, currency string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(assets))
	if len(assets) == 0 {
		return prices, nil
	}

	idToAssets := make(map[string][]models.Asset, len(assets))
	ids := make([]string, 0, len(assets))
	for _, asset := range assets {
		id := coinID(asset)
		if _, seen := idToAssets[id]; !seen {
			ids = append(ids, id)
		}
		idToAssets[id] = append(idToAssets[id], asset)
	}

	vs := strings.ToLower(currency)
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vs)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return prices, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return prices, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return prices, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// {"bitcoin":{"usd":65000.12}}
	var body map[string]map[string]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return prices, fmt.Errorf("decoding response: %w", err)
	}

	var missing []string
	for _, id := range ids {
		raw, ok := body[id][vs]
		if !ok {
			missing = append(missing, id)
			continue
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil || !price.IsPositive() {
			missing = append(missing, id)
			continue
		}
		for _, asset := range idToAssets[id] {
			prices[asset.ID] = price
		}
	}
	if len(missing) > 0 {
		return prices, fmt.Errorf("%w: %s in %s", ErrNoPrice, strings.Join(missing, ","), vs)
	}
	return prices, nil
}
