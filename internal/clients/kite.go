// Package clients contains the Zerodha Kite REST client used as the session,
// market data and holdings gateway.
package clients

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/config"
	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
	"github.com/itsnitinr/zerodha-algo-trading/pkg/retrier"
)

const (
	defaultBaseURL        = "https://kite.zerodha.com"
	defaultInstrumentsURL = "https://api.kite.trade/instruments"

	kiteVersionHeader = "X-Kite-Version"
	kiteVersion       = "3"

	defaultHTTPTimeout = 30 * time.Second
	// recentWindowDays is the calendar window used to derive a quote from the
	// latest daily close.
	recentWindowDays = 5

	exchangeNSE      = "NSE"
	instrumentTypeEQ = "EQ"

	candleTimeLayout = "2006-01-02T15:04:05-0700"
	queryDateLayout  = "2006-01-02"
)

// KiteClient talks to the Zerodha Kite web API. Login establishes an enctoken
// session; after that the client is safe for concurrent read-only use.
type KiteClient struct {
	baseURL        string
	instrumentsURL string
	creds          config.Credentials
	httpClient     *http.Client
	retrier        *retrier.Retrier
	logger         *zap.Logger

	enctoken string
	tokens   map[domain.Symbol]string
}

// Option configures the KiteClient.
type Option func(*KiteClient)

// WithBaseURL overrides the trading API base URL.
func WithBaseURL(u string) Option {
	return func(c *KiteClient) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithInstrumentsURL overrides the instruments dump URL.
func WithInstrumentsURL(u string) Option {
	return func(c *KiteClient) {
		c.instrumentsURL = u
	}
}

// WithRetrier overrides the retry policy for gateway calls.
func WithRetrier(r *retrier.Retrier) Option {
	return func(c *KiteClient) {
		c.retrier = r
	}
}

// NewKiteClient creates a client for the given credentials.
func NewKiteClient(creds config.Credentials, logger *zap.Logger, opts ...Option) (*KiteClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	c := &KiteClient{
		baseURL:        defaultBaseURL,
		instrumentsURL: defaultInstrumentsURL,
		creds:          creds,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
			Jar:     jar,
		},
		retrier: retrier.New(),
		logger:  logger,
		tokens:  make(map[domain.Symbol]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		RequestID string `json:"request_id"`
	} `json:"data"`
}

// Login performs the full Kite authentication flow: password login, TOTP
// two-factor verification, then enctoken extraction for subsequent calls.
func (c *KiteClient) Login(ctx context.Context) error {
	loginForm := url.Values{
		"user_id":  {c.creds.UserID},
		"password": {c.creds.Password},
	}

	var login loginResponse
	if err := c.postForm(ctx, c.baseURL+"/api/login", loginForm, &login); err != nil {
		return errors.Wrap(err, "login request failed")
	}
	if login.Data.RequestID == "" {
		return errors.New("unexpected login response: missing request_id")
	}

	code, err := totp.GenerateCode(c.creds.TOTPSecret, time.Now())
	if err != nil {
		return errors.Wrap(err, "failed to generate TOTP code")
	}

	twofaForm := url.Values{
		"request_id":  {login.Data.RequestID},
		"twofa_value": {code},
		"user_id":     {c.creds.UserID},
	}

	var twofa loginResponse
	if err := c.postForm(ctx, c.baseURL+"/api/twofa", twofaForm, &twofa); err != nil {
		return errors.Wrap(err, "two-factor request failed")
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == "enctoken" && cookie.Value != "" {
			c.enctoken = cookie.Value
		}
	}
	if c.enctoken == "" {
		return errors.New("enctoken not found in cookies after authentication")
	}

	c.logger.Info("authenticated with broker", zap.String("user_id", c.creds.UserID))
	return nil
}

// LoadInstruments downloads the instruments dump and indexes NSE equity tokens
// for the given universe. Symbols without a token are skipped per-symbol later;
// finding none at all is an error.
func (c *KiteClient) LoadInstruments(ctx context.Context, universe domain.Universe) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.instrumentsURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build instruments request")
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: "instruments fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &GatewayError{Op: "instruments fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	wanted := make(map[string]domain.Symbol, len(universe))
	for _, s := range universe {
		wanted[s.String()] = s
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return errors.Wrap(err, "failed to read instruments header")
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"instrument_token", "tradingsymbol", "exchange", "instrument_type"} {
		if _, ok := cols[required]; !ok {
			return fmt.Errorf("instruments dump is missing column %s", required)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a single malformed row must not sink the whole dump
			continue
		}
		if len(record) <= cols["instrument_type"] {
			continue
		}
		if record[cols["exchange"]] != exchangeNSE || record[cols["instrument_type"]] != instrumentTypeEQ {
			continue
		}
		if symbol, ok := wanted[record[cols["tradingsymbol"]]]; ok {
			c.tokens[symbol] = record[cols["instrument_token"]]
		}
	}

	if len(c.tokens) == 0 {
		return errors.New("no instrument tokens found for any universe symbol")
	}

	c.logger.Info("instrument tokens mapped",
		zap.Int("mapped", len(c.tokens)),
		zap.Int("universe", len(universe)))
	return nil
}

type historicalResponse struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]any `json:"candles"`
	} `json:"data"`
}

// GetPriceHistory fetches daily closing bars for the symbol over [from, to],
// ordered ascending by date. An empty window yields an empty slice, not an
// error. Symbols without an instrument token report ErrDataUnavailable.
func (c *KiteClient) GetPriceHistory(ctx context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceBar, error) {
	token, ok := c.tokens[symbol]
	if !ok {
		return nil, errors.Wrapf(ErrDataUnavailable, "no instrument token for %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/oms/instruments/historical/%s/day", c.baseURL, token)
	query := url.Values{
		"from":       {from.Format(queryDateLayout)},
		"to":         {to.Format(queryDateLayout)},
		"continuous": {"0"},
		"oi":         {"0"},
	}

	hist, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (historicalResponse, error) {
		var out historicalResponse
		if err := c.getJSON(ctx, endpoint+"?"+query.Encode(), &out); err != nil {
			return historicalResponse{}, err
		}
		return out, nil
	})
	if err != nil {
		return nil, &GatewayError{Op: fmt.Sprintf("history fetch for %s", symbol), Err: err}
	}

	bars := make([]domain.PriceBar, 0, len(hist.Data.Candles))
	for _, candle := range hist.Data.Candles {
		bar, ok := parseCandle(candle)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}

	domain.SortBarsByDate(bars)
	return bars, nil
}

// GetCurrentPrice derives a quote from the most recent daily close.
func (c *KiteClient) GetCurrentPrice(ctx context.Context, symbol domain.Symbol) (decimal.Decimal, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -recentWindowDays)

	bars, err := c.GetPriceHistory(ctx, symbol, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	if len(bars) == 0 {
		return decimal.Zero, errors.Wrapf(ErrDataUnavailable, "no recent closes for %s", symbol)
	}

	return bars[len(bars)-1].Close, nil
}

type holdingsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		TradingSymbol string  `json:"tradingsymbol"`
		Quantity      int64   `json:"quantity"`
		AveragePrice  float64 `json:"average_price"`
		LastPrice     float64 `json:"last_price"`
		PnL           float64 `json:"pnl"`
	} `json:"data"`
}

// GetHoldings returns the current active positions. An empty portfolio is a
// valid empty slice.
func (c *KiteClient) GetHoldings(ctx context.Context) ([]domain.Holding, error) {
	out, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (holdingsResponse, error) {
		var resp holdingsResponse
		if err := c.getJSON(ctx, c.baseURL+"/oms/portfolio/holdings", &resp); err != nil {
			return holdingsResponse{}, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, &GatewayError{Op: "holdings fetch", Err: err}
	}

	snapshotTime := time.Now()
	holdings := make([]domain.Holding, 0, len(out.Data))
	for _, h := range out.Data {
		if h.Quantity <= 0 {
			continue
		}
		holdings = append(holdings, domain.Holding{
			Symbol:        domain.Symbol(h.TradingSymbol),
			Quantity:      h.Quantity,
			AvgEntryPrice: decimal.NewFromFloat(h.AveragePrice),
			LastPrice:     decimal.NewFromFloat(h.LastPrice),
			PnL:           decimal.NewFromFloat(h.PnL),
			AcquiredAt:    snapshotTime,
		})
	}

	return holdings, nil
}

func parseCandle(candle []any) (domain.PriceBar, bool) {
	if len(candle) < 5 {
		return domain.PriceBar{}, false
	}

	ts, ok := candle[0].(string)
	if !ok {
		return domain.PriceBar{}, false
	}
	date, err := time.Parse(candleTimeLayout, ts)
	if err != nil {
		date, err = time.Parse(queryDateLayout, ts)
		if err != nil {
			return domain.PriceBar{}, false
		}
	}

	var closePrice decimal.Decimal
	switch v := candle[4].(type) {
	case float64:
		closePrice = decimal.NewFromFloat(v)
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return domain.PriceBar{}, false
		}
		closePrice = parsed
	default:
		return domain.PriceBar{}, false
	}

	return domain.PriceBar{Date: date, Close: closePrice}, true
}

func (c *KiteClient) decorate(req *http.Request) {
	req.Header.Set(kiteVersionHeader, kiteVersion)
	if c.enctoken != "" {
		req.Header.Set("Authorization", "enctoken "+c.enctoken)
	}
}

func (c *KiteClient) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.decorate(req)

	return c.doJSON(req, out)
}

func (c *KiteClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	c.decorate(req)

	return c.doJSON(req, out)
}

func (c *KiteClient) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}

	return nil
}
