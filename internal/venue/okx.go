package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/arbengine/fundarb/internal/money"
)

// okxClient implements client against OKX's public funding-rate API.
type okxClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	takerBps   float64
}

func newOKXClient(baseURL string, timeout time.Duration, takerBps float64) *okxClient {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	return &okxClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "fundarb/1.0 (+read-only funding-rate arbitrage detector)",
		takerBps:   takerBps,
	}
}

func NewOKX(baseURL string, timeout time.Duration, takerBps float64) Adapter {
	return newGuardedAdapter("okx", newOKXClient(baseURL, timeout, takerBps), okxCaps, 10, 5, 5)
}

func (o *okxClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.httpClient.Do(req)
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

type okxEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (o *okxClient) fetchFunding(ctx context.Context, pair string) (FundingRate, error) {
	raw, err := o.get(ctx, "/api/v5/public/funding-rate?instId="+pair)
	if err != nil {
		return FundingRate{}, err
	}

	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return FundingRate{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != "0" {
		return FundingRate{}, fmt.Errorf("okx error %s: %s", env.Code, env.Msg)
	}

	var rows []struct {
		FundingRate string `json:"fundingRate"`
		FundingTime string `json:"fundingTime"`
		TS          string `json:"ts"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return FundingRate{}, fmt.Errorf("decode funding-rate data: %w", err)
	}
	if len(rows) == 0 {
		return FundingRate{}, fmt.Errorf("empty funding-rate response for %s", pair)
	}

	fraction, err := strconv.ParseFloat(rows[0].FundingRate, 64)
	if err != nil {
		return FundingRate{}, fmt.Errorf("parse fundingRate: %w", err)
	}
	rate, err := money.FromFraction(fraction)
	if err != nil {
		return FundingRate{}, err
	}

	fundingMs, _ := strconv.ParseInt(rows[0].FundingTime, 10, 64)
	tsMs, _ := strconv.ParseInt(rows[0].TS, 10, 64)

	return FundingRate{
		VenueID:          "okx",
		Pair:             pair,
		Rate:             rate,
		FundingTimestamp: time.UnixMilli(fundingMs),
		ObservedAt:       time.UnixMilli(tsMs),
	}, nil
}

func (o *okxClient) fetchFee(ctx context.Context, pair string) (FeeSchedule, error) {
	rate, err := money.FromBps(o.takerBps)
	if err != nil {
		return FeeSchedule{}, err
	}
	return FeeSchedule{VenueID: "okx", Pair: pair, TakerRate: rate, ObservedAt: time.Now()}, nil
}

func (o *okxClient) fetchOrderBook(ctx context.Context, pair string) (OrderBookTop, error) {
	raw, err := o.get(ctx, "/api/v5/market/ticker?instId="+pair)
	if err != nil {
		return OrderBookTop{}, err
	}

	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return OrderBookTop{}, err
	}

	var rows []struct {
		BidPx string `json:"bidPx"`
		AskPx string `json:"askPx"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) == 0 {
		return OrderBookTop{}, fmt.Errorf("decode ticker data: %w", err)
	}

	bid, _ := strconv.ParseFloat(rows[0].BidPx, 64)
	ask, _ := strconv.ParseFloat(rows[0].AskPx, 64)
	return OrderBookTop{VenueID: "okx", Pair: pair, BestBid: bid, BestAsk: ask, ObservedAt: time.Now()}, nil
}

func (o *okxClient) fetchSymbols(ctx context.Context) ([]string, error) {
	raw, err := o.get(ctx, "/api/v5/public/instruments?instType=SWAP")
	if err != nil {
		return nil, err
	}

	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	var rows []struct {
		InstID string `json:"instId"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.InstID)
	}
	return out, nil
}
