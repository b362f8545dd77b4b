// Package rates converts the USD plan prices into the local currency using
// a public exchange-rate API, with a fixed fallback rate when the API fails.
package rates

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"
)

// Fetcher returns the current rate from USD to the configured currency.
type Fetcher interface {
	Fetch(ctx context.Context) (float64, error)
}

// Client reads a single rate from an unauthenticated JSON API shaped like
// {"rates": {"COP": 4012.5, ...}}.
type Client struct {
	url      string
	currency string
	http     *http.Client
}

// NewClient returns a client for url. A nil httpClient uses a client with a
// 10 second timeout.
func NewClient(url, currency string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{url: url, currency: currency, http: httpClient}
}

// Fetch returns the rate for the configured currency.
func (c *Client) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build rates request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rates: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch rates: status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read rates: %w", err)
	}

	value := gjson.GetBytes(body, "rates."+c.currency)
	if !value.Exists() || value.Float() <= 0 {
		return 0, fmt.Errorf("rates response has no usable %s rate", c.currency)
	}
	return value.Float(), nil
}

// Rate is the rate in use.
type Rate struct {
	Value     float64   `json:"value"`
	Currency  string    `json:"currency"`
	Live      bool      `json:"live"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service caches the rate and refreshes it on a cron schedule.
type Service struct {
	fetcher  Fetcher
	currency string
	fallback float64
	cron     *cron.Cron
	logger   *log.Logger
	now      func() time.Time

	mu   sync.RWMutex
	rate Rate
}

// NewService starts with the fallback rate until the first refresh.
func NewService(fetcher Fetcher, currency string, fallback float64, loc *time.Location, logger *log.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		fetcher:  fetcher,
		currency: currency,
		fallback: fallback,
		cron:     cron.New(cron.WithLocation(loc)),
		logger:   logger,
		now:      time.Now,
		rate:     Rate{Value: fallback, Currency: currency},
	}
}

// Refresh fetches the rate once. On failure the fallback rate is used.
func (s *Service) Refresh(ctx context.Context) error {
	value, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.rate = Rate{Value: s.fallback, Currency: s.currency, UpdatedAt: s.now()}
		return err
	}
	s.rate = Rate{Value: value, Currency: s.currency, Live: true, UpdatedAt: s.now()}
	return nil
}

// Rate returns the rate in use.
func (s *Service) Rate() Rate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate
}

// Start refreshes once in the background and then on every schedule tick.
func (s *Service) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.refreshLogged); err != nil {
		return fmt.Errorf("schedule rates refresh: %w", err)
	}
	s.cron.Start()
	go s.refreshLogged()
	return nil
}

// Stop stops the scheduler and waits for a running refresh.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Service) refreshLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := s.Refresh(ctx); err != nil && s.logger != nil {
		s.logger.Printf("rates: refresh failed, using fallback %.2f: %v", s.fallback, err)
	}
}
