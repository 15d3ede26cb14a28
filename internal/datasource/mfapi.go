package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/seenimoa/investez/internal/infra"
	"github.com/seenimoa/investez/pkg/models"
)

const mfapiBaseURL = "https://api.mfapi.in"

// MFAPI fetches historical NAV series from MFApi.in. It is used for the
// day-change numbers AMFI's daily dump cannot provide.
type MFAPI struct {
	baseURL string
	cache   *infra.Cache
	limiter *infra.RateLimiter
}

// NewMFAPI creates a new MFApi.in data source.
func NewMFAPI() *MFAPI {
	return &MFAPI{
		baseURL: mfapiBaseURL,
		cache:   infra.NewCache(1 * time.Hour),
		// MFApi is a free community API; keep to 2 requests per second.
		limiter: infra.NewRateLimiter(1, 500*time.Millisecond),
	}
}

// Name returns the data source name.
func (m *MFAPI) Name() string { return "MFApi.in" }

// schemeResponse mirrors the /mf/{code} JSON payload.
type schemeResponse struct {
	Meta   models.SchemeMeta `json:"meta"`
	Data   []models.NAVPoint `json:"data"`
	Status string            `json:"status"`
}

// --- Public methods ---

// GetScheme returns the scheme metadata and full NAV history, newest first.
func (m *MFAPI) GetScheme(ctx context.Context, schemeCode string) (*models.SchemeMeta, []models.NAVPoint, error) {
	cacheKey := "mfapi:" + schemeCode
	if cached, ok := m.cache.Get(cacheKey); ok {
		resp := cached.(*schemeResponse)
		return &resp.Meta, resp.Data, nil
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	url := fmt.Sprintf("%s/mf/%s", m.baseURL, schemeCode)
	body, _, err := infra.DoGet(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, nil, fmt.Errorf("mfapi scheme %s: %w", schemeCode, err)
	}
	defer body.Close()

	var resp schemeResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, nil, fmt.Errorf("parse mfapi response for %s: %w", schemeCode, err)
	}

	if resp.Status != "SUCCESS" || len(resp.Data) == 0 {
		return nil, nil, fmt.Errorf("scheme %s: %w", schemeCode, ErrFundNotFound)
	}

	m.cache.Set(cacheKey, &resp)
	return &resp.Meta, resp.Data, nil
}

// DayChange holds the NAV movement between the two most recent NAV dates.
type DayChange struct {
	CurrentNAV    float64
	PreviousNAV   float64
	Change        float64
	ChangePercent float64
	Date          string
}

// GetDayChange computes the latest day's NAV change for a scheme. Returns
// ErrFundNotFound when fewer than two NAV points are available.
func (m *MFAPI) GetDayChange(ctx context.Context, schemeCode string) (*DayChange, error) {
	_, points, err := m.GetScheme(ctx, schemeCode)
	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("scheme %s has no NAV history: %w", schemeCode, ErrFundNotFound)
	}

	return computeDayChange(points[0], points[1])
}

// computeDayChange derives the change between two consecutive NAV points,
// newest first.
func computeDayChange(current, previous models.NAVPoint) (*DayChange, error) {
	currentNAV, err := strconv.ParseFloat(current.NAV, 64)
	if err != nil {
		return nil, fmt.Errorf("parse current NAV %q: %w", current.NAV, err)
	}
	previousNAV, err := strconv.ParseFloat(previous.NAV, 64)
	if err != nil {
		return nil, fmt.Errorf("parse previous NAV %q: %w", previous.NAV, err)
	}

	change := currentNAV - previousNAV
	changePercent := 0.0
	if previousNAV > 0 {
		changePercent = change / previousNAV * 100
	}

	return &DayChange{
		CurrentNAV:    currentNAV,
		PreviousNAV:   previousNAV,
		Change:        round2(change),
		ChangePercent: round2(changePercent),
		Date:          current.Date,
	}, nil
}
