// Package ruleengine calls the external rule-validation service and filters its report
// down to the failures of rules that currently block certificate completion.
package ruleengine

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// Request is the body of an online validation call.
type Request struct {
	ExportPayload  types.ExportPayload   `json:"exportPayload"`
	DocumentNumber string                `json:"documentNumber"`
	Conservation   types.Conservation    `json:"conservation"`
	Exporter       types.ExporterDetails `json:"exporter"`
	Transport      types.Transport       `json:"transport"`
}

// Response is the rule engine's verdict. RawData is passed through untouched.
type Response struct {
	Report  []types.OnlineValidationReportItem `json:"report"`
	RawData json.RawMessage                    `json:"rawData,omitempty"`
}

// Validator runs the regulatory rules against a certificate.
type Validator interface {
	ValidateOnline(ctx context.Context, req Request) (*Response, error)
}

// Client implements Validator over HTTP.
type Client struct {
	c *integration.Client
}

// NewClient returns a rule engine client.
func NewClient(cfg config.ServiceIntegration) *Client {
	return &Client{c: integration.New("rule-engine", cfg, logging.CategoryRuleEngine)}
}

// ValidateOnline implements Validator.
func (r *Client) ValidateOnline(ctx context.Context, req Request) (*Response, error) {
	timer := logging.StartTimer(logging.CategoryRuleEngine, "ValidateOnline "+req.DocumentNumber)
	defer timer.Stop()

	var resp Response
	if err := r.c.Do(ctx, http.MethodPost, "/validation/online", req, &resp); err != nil {
		return nil, err
	}
	if resp.Report == nil {
		resp.Report = []types.OnlineValidationReportItem{}
	}
	logging.Get(logging.CategoryRuleEngine).Info("Rule engine returned %d report rows for %s", len(resp.Report), req.DocumentNumber)
	return &resp, nil
}
