package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-r", ":6000", "-k", "memory", "-d", "db",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-x", "30", "-n", "5", "-l", "bot.log", "-v", "debug",
		}, expectPanic: false,
			expected: &Config{
				ListenAddr:     "127.0.0.1:9090",
				HealthAddrGRPC: ":6000",
				StoreKind:      "memory",
				DatabaseDSN:    "db",
				S3RootUser:     "user",
				S3RootPassword: "password",
				S3Bucket:       "bucket",
				S3Region:       "us-west-1",
				S3BaseEndpoint: "http://endpoint",
				PresignExpiry:  30 * time.Minute,
				FetchAttempts:  5,
				LogFile:        "bot.log",
				LogLevel:       "debug",
			}},
		{name: "Unknown flags are ignored", args: []string{"cmd", "-test.v", "-a", ":1"},
			expected: &Config{ListenAddr: ":1"}},
		{name: "Bad int panics", args: []string{"cmd", "-n", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
