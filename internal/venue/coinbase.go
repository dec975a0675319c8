package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/arbengine/fundarb/internal/money"
)

// coinbaseClient implements client against Coinbase International perps.
// Coinbase does not publish a public funding-rate endpoint in this
// module's read-only surface (coinbaseCaps), so fetchFunding always
// reports NotSupported via the capability gate before this is reached.
type coinbaseClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	takerBps   float64
}

func newCoinbaseClient(baseURL string, timeout time.Duration, takerBps float64) *coinbaseClient {
	if baseURL == "" {
		baseURL = "https://api.international.coinbase.com"
	}
	return &coinbaseClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "fundarb/1.0 (+read-only funding-rate arbitrage detector)",
		takerBps:   takerBps,
	}
}

func NewCoinbase(baseURL string, timeout time.Duration, takerBps float64) Adapter {
	return newGuardedAdapter("coinbase", newCoinbaseClient(baseURL, timeout, takerBps), coinbaseCaps, 10, 5, 5)
}

func (c *coinbaseClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *coinbaseClient) fetchFunding(ctx context.Context, pair string) (FundingRate, error) {
	return FundingRate{}, errors.New("coinbase: funding rate not supported by this adapter")
}

func (c *coinbaseClient) fetchFee(ctx context.Context, pair string) (FeeSchedule, error) {
	rate, err := money.FromBps(c.takerBps)
	if err != nil {
		return FeeSchedule{}, err
	}
	return FeeSchedule{VenueID: "coinbase", Pair: pair, TakerRate: rate, ObservedAt: time.Now()}, nil
}

func (c *coinbaseClient) fetchOrderBook(ctx context.Context, pair string) (OrderBookTop, error) {
	raw, err := c.get(ctx, "/api/v1/instruments/"+pair+"/quote")
	if err != nil {
		return OrderBookTop{}, err
	}

	var resp struct {
		BestBidPrice string `json:"best_bid_price"`
		BestAskPrice string `json:"best_ask_price"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return OrderBookTop{}, fmt.Errorf("decode quote: %w", err)
	}

	bid, _ := strconv.ParseFloat(resp.BestBidPrice, 64)
	ask, _ := strconv.ParseFloat(resp.BestAskPrice, 64)
	return OrderBookTop{VenueID: "coinbase", Pair: pair, BestBid: bid, BestAsk: ask, ObservedAt: time.Now()}, nil
}

func (c *coinbaseClient) fetchSymbols(ctx context.Context) ([]string, error) {
	raw, err := c.get(ctx, "/api/v1/instruments")
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode instruments: %w", err)
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Symbol)
	}
	return out, nil
}
