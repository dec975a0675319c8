package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arbengine/fundarb/internal/money"
)

// krakenClient implements client against Kraken Futures. Kraken does not
// expose a public order-book-top endpoint, reflected in krakenCaps.
type krakenClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	takerBps   float64
}

func newKrakenClient(baseURL string, timeout time.Duration, takerBps float64) *krakenClient {
	if baseURL == "" {
		baseURL = "https://futures.kraken.com"
	}
	return &krakenClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "fundarb/1.0 (+read-only funding-rate arbitrage detector)",
		takerBps:   takerBps,
	}
}

func NewKraken(baseURL string, timeout time.Duration, takerBps float64) Adapter {
	return newGuardedAdapter("kraken", newKrakenClient(baseURL, timeout, takerBps), krakenCaps, 10, 5, 5)
}

func (k *krakenClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", k.userAgent)

	resp, err := k.httpClient.Do(req)
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

func (k *krakenClient) fetchFunding(ctx context.Context, pair string) (FundingRate, error) {
	raw, err := k.get(ctx, "/derivatives/api/v3/historicalfundingrates?symbol="+pair)
	if err != nil {
		return FundingRate{}, err
	}

	var resp struct {
		Rates []struct {
			FundingRate float64 `json:"fundingRate"`
			Timestamp   string  `json:"timestamp"`
		} `json:"rates"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return FundingRate{}, fmt.Errorf("decode historicalfundingrates: %w", err)
	}
	if len(resp.Rates) == 0 {
		return FundingRate{}, fmt.Errorf("no funding history for %s", pair)
	}

	latest := resp.Rates[len(resp.Rates)-1]
	rate, err := money.FromFraction(latest.FundingRate)
	if err != nil {
		return FundingRate{}, err
	}

	ts, err := time.Parse(time.RFC3339, latest.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	return FundingRate{
		VenueID:          "kraken",
		Pair:             pair,
		Rate:             rate,
		FundingTimestamp: ts,
		ObservedAt:       ts,
	}, nil
}

func (k *krakenClient) fetchFee(ctx context.Context, pair string) (FeeSchedule, error) {
	rate, err := money.FromBps(k.takerBps)
	if err != nil {
		return FeeSchedule{}, err
	}
	return FeeSchedule{VenueID: "kraken", Pair: pair, TakerRate: rate, ObservedAt: time.Now()}, nil
}

func (k *krakenClient) fetchOrderBook(ctx context.Context, pair string) (OrderBookTop, error) {
	return OrderBookTop{}, errors.New("kraken: order book top not supported by this adapter")
}

func (k *krakenClient) fetchSymbols(ctx context.Context) ([]string, error) {
	raw, err := k.get(ctx, "/derivatives/api/v3/instruments")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Instruments []struct {
			Symbol string `json:"symbol"`
		} `json:"instruments"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode instruments: %w", err)
	}

	out := make([]string, 0, len(resp.Instruments))
	for _, i := range resp.Instruments {
		out = append(out, i.Symbol)
	}
	return out, nil
}
