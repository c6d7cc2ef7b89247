package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/idtoken"
)

// NominatimClient talks to a Nominatim-compatible HTTP API.
type NominatimClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// NewNominatimClient builds a client for baseURL. A nil client gets an ID token client when
// application default credentials are available, and a plain client otherwise. A nil limiter
// disables pacing.
func NewNominatimClient(client *http.Client, baseURL, userAgent string, limiter *rate.Limiter) (*NominatimClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, eris.New("geocode: base url must not be empty")
	}
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), baseURL)
		if err != nil {
			client = &http.Client{Timeout: 10 * time.Second}
		} else {
			client = idc
		}
	}
	return &NominatimClient{client: client, baseURL: baseURL, userAgent: userAgent, limiter: limiter}, nil
}

type nominatimPlace struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Hamlet      string `json:"hamlet"`
	State       string `json:"state"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Geocode resolves address to its best match.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNoMatch
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", address)
	q.Set("limit", "1")
	q.Set("addressdetails", "1")

	var places []nominatimPlace
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNoMatch
	}
	return places[0].toResult()
}

// Reverse resolves coordinates to the nearest addressable place.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("addressdetails", "1")

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", q, &place); err != nil {
		return nil, err
	}
	if place.Error != "" {
		return nil, ErrNoMatch
	}
	return place.toResult()
}

func (c *NominatimClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "geocode: rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "geocode: request failed")
	}
	defer resp.Body.Close()
	zap.L().Debug("geocode request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("geocode: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "geocode: decode response")
	}
	return nil
}

func (p nominatimPlace) toResult() (*Result, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: invalid latitude %q", p.Lat)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: invalid longitude %q", p.Lon)
	}

	a := p.Address
	street := strings.TrimSpace(strings.Join([]string{a.HouseNumber, a.Road}, " "))
	return &Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: p.DisplayName,
		StreetAddress:    street,
		PostalCode:       a.Postcode,
		City:             firstNonEmpty(a.City, a.Town, a.Village, a.Hamlet),
		State:            a.State,
		Country:          a.Country,
		CountryCode:      strings.ToUpper(a.CountryCode),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Client = (*NominatimClient)(nil)
