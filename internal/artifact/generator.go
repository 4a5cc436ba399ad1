// Package artifact requests generation and upload of the signed certificate document.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// Request carries everything printed on the certificate.
type Request struct {
	DocumentNumber string                `json:"documentNumber"`
	ExportPayload  types.ExportPayload   `json:"exportPayload"`
	Exporter       types.ExporterDetails `json:"exporter"`
	ExportLocation types.ExportLocation  `json:"exportLocation"`
	Transport      types.Transport       `json:"transport"`
	Conservation   types.Conservation    `json:"conservation"`
}

// Result locates the uploaded document.
type Result struct {
	URI string `json:"uri"`
}

// Generator renders and uploads a certificate.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Client implements Generator against the artifact service.
type Client struct {
	c *integration.Client
}

// NewClient returns an artifact service client.
func NewClient(cfg config.ServiceIntegration) *Client {
	return &Client{c: integration.New("artifact", cfg, logging.CategoryArtifact)}
}

// Generate implements Generator.
func (a *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryArtifact, "Generate "+req.DocumentNumber)
	defer timer.Stop()

	var res Result
	if err := a.c.Do(ctx, http.MethodPost, "/v1/certificates", req, &res); err != nil {
		return nil, fmt.Errorf("certificate generation for %s: %w", req.DocumentNumber, err)
	}
	if res.URI == "" {
		return nil, errors.New("artifact service returned no uri")
	}
	logging.Get(logging.CategoryArtifact).Info("Certificate %s uploaded to %s", req.DocumentNumber, res.URI)
	return &res, nil
}
