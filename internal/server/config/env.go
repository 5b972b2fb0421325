package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/katlaang/pestscan-sub001/internal/flagx"
)

// EnvPrefix prefixes every environment variable read by the server.
const EnvPrefix = "PESTSCAN_"

// parseEnv overlays PESTSCAN_* environment variables onto config. When the
// -env flag names a dotenv file it is loaded first; variables already set in
// the process environment win over the file. Malformed values panic, like
// the other config layers.
func parseEnv(config *Config) {
	if envFile := flagx.EnvFileFlags(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	}

	envString("GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envDuration("PRESIGN_TTL", &config.PresignTTL)
	envInt("SYNC_PAGE_SIZE", &config.SyncPageSize)
	envDuration("PENDING_MONITOR_INTERVAL", &config.PendingMonitorInterval)
	envString("LOG_LEVEL", &config.LogLevel)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
	}
	*dst = n
}

func envDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
	}
	*dst = d
}
