// Package refdata is the client of the reference data service: vessel licences,
// seasonal fishing restrictions, gear types and the vessel-landing refresher.
package refdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
)

// SeasonalPeriod is a window during which landing a species is restricted.
type SeasonalPeriod struct {
	Species   string `json:"fao"`
	ValidFrom string `json:"validFrom"`
	ValidTo   string `json:"validTo"`
}

// Service is what the pipeline needs from the reference data service.
type Service interface {
	// VesselLicenceValid reports whether the vessel held a licence on the landing date.
	VesselLicenceValid(ctx context.Context, pln, dateLanded string) (bool, error)
	// SeasonalFishPeriods lists the active seasonal restrictions.
	SeasonalFishPeriods(ctx context.Context) ([]SeasonalPeriod, error)
	// GearTypeValid reports whether gearType belongs to gearCategory.
	GearTypeValid(ctx context.Context, gearCategory, gearType string) (bool, error)
	// RefreshLanding asks the service to re-fetch landing data for one vessel and date.
	RefreshLanding(ctx context.Context, pln, dateLanded string) error
}

// Client implements Service over HTTP.
type Client struct {
	c *integration.Client
}

// NewClient returns a reference data client.
func NewClient(cfg config.ServiceIntegration) *Client {
	return &Client{c: integration.New("reference-data", cfg, logging.CategoryRefData)}
}

// WithHTTPClient replaces the underlying HTTP client.
func (r *Client) WithHTTPClient(hc *http.Client) *Client {
	r.c.WithHTTPClient(hc)
	return r
}

// VesselLicenceValid implements Service.
func (r *Client) VesselLicenceValid(ctx context.Context, pln, dateLanded string) (bool, error) {
	q := url.Values{"vesselPln": {pln}, "landedDate": {dateLanded}}
	var ok bool
	if err := r.c.Do(ctx, http.MethodGet, "/v1/vessels/hasLicense?"+q.Encode(), nil, &ok); err != nil {
		return false, fmt.Errorf("vessel licence check for %s: %w", pln, err)
	}
	return ok, nil
}

// SeasonalFishPeriods implements Service.
func (r *Client) SeasonalFishPeriods(ctx context.Context) ([]SeasonalPeriod, error) {
	var periods []SeasonalPeriod
	if err := r.c.Do(ctx, http.MethodGet, "/v1/seasonalFish", nil, &periods); err != nil {
		return nil, fmt.Errorf("seasonal fish periods: %w", err)
	}
	return periods, nil
}

// GearTypeValid implements Service. An unknown category is not an error; it is invalid.
func (r *Client) GearTypeValid(ctx context.Context, gearCategory, gearType string) (bool, error) {
	var gearTypes []struct {
		Name string `json:"gearName"`
		Code string `json:"gearCode"`
	}
	err := r.c.Do(ctx, http.MethodGet, "/v1/gearTypes/"+url.PathEscape(gearCategory), nil, &gearTypes)
	if integration.IsStatus(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gear types for %s: %w", gearCategory, err)
	}
	for _, g := range gearTypes {
		if strings.EqualFold(g.Code, gearType) || strings.EqualFold(g.Name, gearType) {
			return true, nil
		}
	}
	return false, nil
}

// RefreshLanding implements Service.
func (r *Client) RefreshLanding(ctx context.Context, pln, dateLanded string) error {
	body := map[string]string{"pln": pln, "dateLanded": dateLanded}
	if err := r.c.Do(ctx, http.MethodPost, "/v1/landings/refresh", body, nil); err != nil {
		return fmt.Errorf("refresh landing %s/%s: %w", pln, dateLanded, err)
	}
	return nil
}
