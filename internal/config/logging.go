package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty" env:"CERTD_LOG_LEVEL"`    // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty" env:"CERTD_LOG_FORMAT"` // json, console
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`                 // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
