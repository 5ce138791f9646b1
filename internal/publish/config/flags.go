package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/intrusionbot/internal/flagx"
)

// parseFlags overlays command-line flags onto cfg. Only -a, -u, -d, -n and
// -t are recognized; other arguments are ignored.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-d", "-n", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Endpoint, "a", cfg.Endpoint, "deployment endpoint")
	fs.StringVar(&cfg.User, "u", cfg.User, "deployment user")
	fs.StringVar(&cfg.Dir, "d", cfg.Dir, "directory to archive")
	fs.StringVar(&cfg.Name, "n", cfg.Name, "archive name")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "upload timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
}
