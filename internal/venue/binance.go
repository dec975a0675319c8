package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arbengine/fundarb/internal/money"
)

// binanceClient implements client against Binance's USD-M futures API,
// exposing only the read-only funding/fee/book surface this module needs.
type binanceClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	takerBps   float64 // taker fee schedule is account-tier static for read-only global detection
}

func newBinanceClient(baseURL string, timeout time.Duration, takerBps float64) *binanceClient {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	return &binanceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "fundarb/1.0 (+read-only funding-rate arbitrage detector)",
		takerBps:   takerBps,
	}
}

// NewBinance constructs a guarded Binance adapter.
func NewBinance(baseURL string, timeout time.Duration, takerBps float64) Adapter {
	return newGuardedAdapter("binance", newBinanceClient(baseURL, timeout, takerBps), binanceCaps, 10, 5, 5)
}

func (b *binanceClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
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

func (b *binanceClient) fetchFunding(ctx context.Context, pair string) (FundingRate, error) {
	endpoint := fmt.Sprintf("/fapi/v1/premiumIndex?symbol=%s", strings.ToUpper(pair))
	raw, err := b.get(ctx, endpoint)
	if err != nil {
		return FundingRate{}, err
	}

	var resp struct {
		LastFundingRate string `json:"lastFundingRate"`
		NextFundingTime int64  `json:"nextFundingTime"`
		Time            int64  `json:"time"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return FundingRate{}, fmt.Errorf("decode premiumIndex: %w", err)
	}

	fraction, err := strconv.ParseFloat(resp.LastFundingRate, 64)
	if err != nil {
		return FundingRate{}, fmt.Errorf("parse lastFundingRate: %w", err)
	}
	rate, err := money.FromFraction(fraction)
	if err != nil {
		return FundingRate{}, err
	}

	return FundingRate{
		VenueID:          "binance",
		Pair:             pair,
		Rate:             rate,
		FundingTimestamp: time.UnixMilli(resp.NextFundingTime),
		ObservedAt:       time.UnixMilli(resp.Time),
	}, nil
}

func (b *binanceClient) fetchFee(ctx context.Context, pair string) (FeeSchedule, error) {
	// Binance futures taker fee is account-tier driven, not a per-symbol
	// public endpoint; callers supply the account's static schedule instead.
	rate, err := money.FromBps(b.takerBps)
	if err != nil {
		return FeeSchedule{}, err
	}
	return FeeSchedule{
		VenueID:    "binance",
		Pair:       pair,
		TakerRate:  rate,
		ObservedAt: time.Now(),
	}, nil
}

func (b *binanceClient) fetchOrderBook(ctx context.Context, pair string) (OrderBookTop, error) {
	endpoint := fmt.Sprintf("/fapi/v1/ticker/bookTicker?symbol=%s", strings.ToUpper(pair))
	raw, err := b.get(ctx, endpoint)
	if err != nil {
		return OrderBookTop{}, err
	}

	var resp struct {
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return OrderBookTop{}, fmt.Errorf("decode bookTicker: %w", err)
	}

	bid, _ := strconv.ParseFloat(resp.BidPrice, 64)
	ask, _ := strconv.ParseFloat(resp.AskPrice, 64)

	return OrderBookTop{
		VenueID:    "binance",
		Pair:       pair,
		BestBid:    bid,
		BestAsk:    ask,
		ObservedAt: time.Now(),
	}, nil
}

func (b *binanceClient) fetchSymbols(ctx context.Context) ([]string, error) {
	raw, err := b.get(ctx, "/fapi/v1/exchangeInfo")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode exchangeInfo: %w", err)
	}

	out := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		out = append(out, s.Symbol)
	}
	return out, nil
}
