package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/intrusionbot/internal/flagx"
	"github.com/dmitrijs2005/intrusionbot/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Durations use timex.Duration, which accepts both "5s" strings and integer
// nanoseconds.
type JsonConfig struct {
	ListenAddr     string         `json:"listen_addr"`
	HealthAddrGRPC string         `json:"health_addr_grpc"`
	StoreKind      string         `json:"store_kind"`
	DatabaseDSN    string         `json:"database_dsn"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	PresignExpiry  timex.Duration `json:"presign_expiry"`
	AttachTimeout  timex.Duration `json:"attach_timeout"`
	FetchTimeout   timex.Duration `json:"fetch_timeout"`
	FetchAttempts  int            `json:"fetch_attempts"`
	ThumbnailSize  int            `json:"thumbnail_size"`
	LogFile        string         `json:"log_file"`
	LogLevel       string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag into config. Keys absent from the file keep their current
// values. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	setString(&config.StoreKind, c.StoreKind)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogFile, c.LogFile)
	setString(&config.LogLevel, c.LogLevel)

	if c.PresignExpiry.Duration > 0 {
		config.PresignExpiry = c.PresignExpiry.Duration
	}
	if c.AttachTimeout.Duration > 0 {
		config.AttachTimeout = c.AttachTimeout.Duration
	}
	if c.FetchTimeout.Duration > 0 {
		config.FetchTimeout = c.FetchTimeout.Duration
	}
	if c.FetchAttempts > 0 {
		config.FetchAttempts = c.FetchAttempts
	}
	if c.ThumbnailSize > 0 {
		config.ThumbnailSize = c.ThumbnailSize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
