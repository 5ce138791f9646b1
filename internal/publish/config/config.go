package config

import (
	"time"

	"github.com/dmitrijs2005/intrusionbot/internal/flagx"
)

// Config holds runtime settings for the publish tool.
type Config struct {
	Endpoint string
	User     string
	Password string
	Dir      string
	Name     string
	Timeout  time.Duration
}

// LoadDefaults populates c with the settings of the hosted deployment.
func (c *Config) LoadDefaults() {
	c.Endpoint = "https://intrusiondetector.scm.azurewebsites.net/api/zip/site/wwwroot"
	c.User = "$intrusiondetector"
	c.Password = ""
	c.Dir = "."
	c.Name = "intrusiondetector"
	c.Timeout = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

func parseEnv(cfg *Config) {
	flagx.EnvString(&cfg.Endpoint, "PUBLISH_ENDPOINT")
	flagx.EnvString(&cfg.User, "PUBLISH_USER")
	flagx.EnvString(&cfg.Password, "PUBLISH_PASSWORD")
}
