package config

import (
	"fmt"
	"time"
)

// IntegrationsConfig configures the external services the pipeline calls.
type IntegrationsConfig struct {
	ReferenceData ServiceIntegration `yaml:"reference_data" envPrefix:"CERTD_REFERENCE_DATA_"`
	RuleEngine    ServiceIntegration `yaml:"rule_engine" envPrefix:"CERTD_RULE_ENGINE_"`
	Notification  ServiceIntegration `yaml:"notification" envPrefix:"CERTD_NOTIFICATION_"`
	Reporting     ServiceIntegration `yaml:"reporting" envPrefix:"CERTD_REPORTING_"`
	Artifact      ServiceIntegration `yaml:"artifact" envPrefix:"CERTD_ARTIFACT_"`
}

// ServiceIntegration configures a single HTTP collaborator.
type ServiceIntegration struct {
	BaseURL string `yaml:"base_url" env:"URL"`
	Timeout string `yaml:"timeout" env:"TIMEOUT"` // e.g., "30s", "2m"
}

// DefaultIntegrations returns local development endpoints.
func DefaultIntegrations() IntegrationsConfig {
	return IntegrationsConfig{
		ReferenceData: ServiceIntegration{BaseURL: "http://localhost:9000", Timeout: "30s"},
		RuleEngine:    ServiceIntegration{BaseURL: "http://localhost:9001", Timeout: "120s"},
		Notification:  ServiceIntegration{BaseURL: "http://localhost:9002", Timeout: "30s"},
		Reporting:     ServiceIntegration{BaseURL: "http://localhost:9003", Timeout: "30s"},
		Artifact:      ServiceIntegration{BaseURL: "http://localhost:9004", Timeout: "60s"},
	}
}

// GetTimeout returns the integration timeout as a duration.
func (s ServiceIntegration) GetTimeout() time.Duration {
	return parseDuration(s.Timeout, 30*time.Second)
}

// Validate checks that every collaborator has a base URL.
func (c *IntegrationsConfig) Validate() error {
	for name, s := range map[string]ServiceIntegration{
		"reference_data": c.ReferenceData,
		"rule_engine":    c.RuleEngine,
		"notification":   c.Notification,
		"reporting":      c.Reporting,
		"artifact":       c.Artifact,
	} {
		if s.BaseURL == "" {
			return fmt.Errorf("integrations.%s.base_url is required", name)
		}
	}
	return nil
}
