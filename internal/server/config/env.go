package config

import (
	"os"
	"strings"

	"github.com/dmitrijs2005/intrusionbot/internal/flagx"
)

// parseEnv overlays settings from the environment. PORT is the hosting
// platform convention and only sets the port of ListenAddr.
func parseEnv(config *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ListenAddr = ":" + port
	}
	flagx.EnvString(&config.ListenAddr, "LISTEN_ADDR")
	flagx.EnvString(&config.HealthAddrGRPC, "HEALTH_ADDR_GRPC")
	flagx.EnvString(&config.StoreKind, "STORE_KIND")
	flagx.EnvString(&config.DatabaseDSN, "DATABASE_DSN", "DATABASE_URL")
	flagx.EnvString(&config.S3RootUser, "S3_ROOT_USER")
	flagx.EnvString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	flagx.EnvString(&config.S3Bucket, "S3_BUCKET")
	flagx.EnvString(&config.S3Region, "S3_REGION")
	flagx.EnvString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	flagx.EnvDuration(&config.PresignExpiry, "PRESIGN_EXPIRY")
	flagx.EnvDuration(&config.AttachTimeout, "ATTACH_TIMEOUT")
	flagx.EnvDuration(&config.FetchTimeout, "FETCH_TIMEOUT")
	flagx.EnvInt(&config.FetchAttempts, "FETCH_ATTEMPTS")
	flagx.EnvInt(&config.ThumbnailSize, "THUMBNAIL_SIZE")
	flagx.EnvString(&config.LogFile, "LOG_FILE")
	flagx.EnvString(&config.LogLevel, "LOG_LEVEL")
}
