package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/intrusionbot/internal/flagx"
	"github.com/dmitrijs2005/intrusionbot/internal/timex"
)

// JsonConfig is the on-disk shape of Config.
type JsonConfig struct {
	Endpoint string         `json:"endpoint"`
	User     string         `json:"user"`
	Password string         `json:"password"`
	Dir      string         `json:"dir"`
	Name     string         `json:"name"`
	Timeout  timex.Duration `json:"timeout"`
}

// parseJson overlays the file named by -c/-config onto cfg. Empty keys keep
// their current values. It panics if the file cannot be read or decoded.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	for _, f := range []struct {
		dst *string
		v   string
	}{
		{&cfg.Endpoint, jc.Endpoint},
		{&cfg.User, jc.User},
		{&cfg.Password, jc.Password},
		{&cfg.Dir, jc.Dir},
		{&cfg.Name, jc.Name},
	} {
		if f.v != "" {
			*f.dst = f.v
		}
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
}
