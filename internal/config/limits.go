package config

import (
	"fmt"
	"time"
)

// ValidationConfig holds the thresholds and rule flags of the submission pipeline.
type ValidationConfig struct {
	// Unique (pln, dateLanded) pairs above this count switch a submission to offline mode.
	OnlineThreshold int `yaml:"online_threshold" env:"CERTD_ONLINE_VALIDATION_THRESHOLD"`
	// Max parallel landing refreshes in online mode.
	RefreshConcurrency int `yaml:"refresh_concurrency" env:"CERTD_REFRESH_CONCURRENCY"`
	// Landings dated more than this many days ahead are rejected at pre-check.
	MaxDaysInFuture int `yaml:"max_days_in_future" env:"CERTD_MAX_DAYS_IN_FUTURE"`

	// Default blocking state of each rule when no persisted flag exists.
	Blocking3C bool `yaml:"blocking_3c" env:"CERTD_BLOCKING_3C"`
	Blocking3D bool `yaml:"blocking_3d" env:"CERTD_BLOCKING_3D"`
	Blocking4A bool `yaml:"blocking_4a" env:"CERTD_BLOCKING_4A"`
}

// DefaultValidation returns the production thresholds.
func DefaultValidation() ValidationConfig {
	return ValidationConfig{
		OnlineThreshold:    50,
		RefreshConcurrency: 10,
		MaxDaysInFuture:    3,
		Blocking3C:         true,
		Blocking3D:         true,
		Blocking4A:         true,
	}
}

// Validate checks that thresholds are within acceptable ranges.
func (c *ValidationConfig) Validate() error {
	if c.OnlineThreshold < 1 {
		return fmt.Errorf("online_threshold must be >= 1")
	}
	if c.RefreshConcurrency < 1 {
		return fmt.Errorf("refresh_concurrency must be >= 1")
	}
	if c.MaxDaysInFuture < 0 {
		return fmt.Errorf("max_days_in_future must be >= 0")
	}
	return nil
}

// NotificationsConfig configures email templates and artifact polling.
type NotificationsConfig struct {
	SuccessTemplateID        string `yaml:"success_template_id" env:"CERTD_EMAIL_SUCCESS_TEMPLATE"`
	FailureTemplateID        string `yaml:"failure_template_id" env:"CERTD_EMAIL_FAILURE_TEMPLATE"`
	TechnicalErrorTemplateID string `yaml:"technical_error_template_id" env:"CERTD_EMAIL_TECHNICAL_TEMPLATE"`
	BlobPollAttempts         int    `yaml:"blob_poll_attempts" env:"CERTD_BLOB_POLL_ATTEMPTS"`
	BlobPollInterval         string `yaml:"blob_poll_interval" env:"CERTD_BLOB_POLL_INTERVAL"`
}

// GetBlobPollInterval returns the wait between blob existence checks.
func (c NotificationsConfig) GetBlobPollInterval() time.Duration {
	return parseDuration(c.BlobPollInterval, 2*time.Second)
}
