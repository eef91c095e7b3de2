package transit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/goroute-booking/internal/common/logger"
	"github.com/goroute-booking/pkg/transit/models"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID = "X-Request-ID"
	UserAgent       = "goroute-client/1.0"
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 4 << 10
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimitPerMin int
	// Transport is wrapped around the default transport, e.g. for tracing
	Transport http.RoundTripper
}

// Client talks JSON to the GoRoute backend. It never retries; callers
// re-trigger failed operations themselves.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
}

var _ Service = (*Client)(nil)

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMin)), cfg.RateLimitPerMin)
	}

	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: limiter,
		logger:  log,
	}, nil
}

func (c *Client) SearchBuses(ctx context.Context, from, to, date string, preference models.GenderPreference) ([]models.BusOffering, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("date", date)
	q.Set("gender", string(preference))

	var buses []models.BusOffering
	if err := c.do(ctx, "search buses", http.MethodGet, "/api/buses/available", q, nil, &buses); err != nil {
		return nil, err
	}
	if buses == nil {
		buses = []models.BusOffering{}
	}

	c.logger.Debug("Buses fetched", "from", from, "to", to, "date", date, "count", len(buses))
	return buses, nil
}

func (c *Client) GetSeatMap(ctx context.Context, busID int64) ([]models.SeatMapEntry, error) {
	var seats []models.SeatMapEntry
	path := fmt.Sprintf("/api/routebus/%d/seats/", busID)
	if err := c.do(ctx, "get seat map", http.MethodGet, path, nil, nil, &seats); err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []models.SeatMapEntry{}
	}
	return seats, nil
}

func (c *Client) SubmitWaitlist(ctx context.Context, req models.WaitlistRequest) (models.Ack, error) {
	var ack models.Ack
	err := c.do(ctx, "submit waitlist", http.MethodPost, "/api/waitlist/", nil, req, &ack)
	return ack, err
}

func (c *Client) SubmitWakeMeUp(ctx context.Context, req models.WakeMeUpRequest) (models.Ack, error) {
	var ack models.Ack
	err := c.do(ctx, "submit wake-me-up", http.MethodPost, "/api/routebus/wake-me-up/", nil, req, &ack)
	return ack, err
}

func (c *Client) GetProfile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, "get profile", http.MethodGet, "/api/profile/", nil, nil, &profile)
	return profile, err
}

func (c *Client) UpdateProfile(ctx context.Context, profile models.Profile) (models.Ack, error) {
	var ack models.Ack
	err := c.do(ctx, "update profile", http.MethodPut, "/api/profile/update/", nil, profile, &ack)
	return ack, err
}

func (c *Client) SearchCityBuses(ctx context.Context, from, to string) ([]models.CityBus, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	var buses []models.CityBus
	if err := c.do(ctx, "search city buses", http.MethodGet, "/api/citybus/search/", q, nil, &buses); err != nil {
		return nil, err
	}
	if buses == nil {
		buses = []models.CityBus{}
	}
	return buses, nil
}

// do performs one JSON round trip. An empty 2xx body leaves out untouched.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	fail := func(status int, body string, err error) error {
		return &RequestError{Op: op, Method: method, URL: target, StatusCode: status, Body: body, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(0, "", fmt.Errorf("waiting for rate limiter: %w", err))
		}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Transit request failed", "op", op, "url", target, "request_id", requestID, "error", err)
		return fail(0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("Transit service returned error status",
			"op", op,
			"status_code", resp.StatusCode,
			"url", target,
			"request_id", requestID,
			"response_body", string(raw))
		return fail(resp.StatusCode, strings.TrimSpace(string(raw)), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(0, "", fmt.Errorf("reading response body: %w", err))
	}

	c.logger.Debug("Transit request completed",
		"op", op,
		"status_code", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start))

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
