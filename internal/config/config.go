package config

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type Config struct {
	Env     string
	AppName string
	AppPort string
	AppUrl  string

	// Database
	DBUrl string

	// Auth
	RSAPublicKey *rsa.PublicKey

	// Notifications
	SendGridAPIKey       string
	SendGridFromEmail    string
	RedisURL             string
	DefaultLanguage      string
	NotificationSyncCron string

	// LaunchDarkly flags
	LDFlag_SeedDbWithTestData    bool
	LDFlag_CORSHighSecurity      bool
	LDFlag_SendgridSandboxMode   bool
	LDFlag_EmailApprovalRequests bool
}

const (
	LDConnectionTimeout = 5 * time.Second

	DefaultAppPort       = "8080"
	DefaultFromEmail     = "no-reply@buildings.local"
	DefaultSyncCron      = constants.DefaultNotificationSyncCron
	DefaultLanguage      = "en"
	defaultLDContextKind = "service"
)

// build-time overrides
var (
	AppName            = "building-service"
	LDServerContextKey string
)

// LoadConfig reads the environment. Missing required values are fatal. Flags
// fall back to their defaults when LD_SDK_KEY is unset.
func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	env := os.Getenv("ENV")
	if env == "" {
		utils.Logger.Fatal("ENV env var is missing")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	cfg := &Config{
		Env:                  env,
		AppName:              AppName,
		AppPort:              envOr("APP_PORT", DefaultAppPort),
		AppUrl:               os.Getenv("APP_URL"),
		DBUrl:                dbURL,
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail:    envOr("SENDGRID_FROM_EMAIL", DefaultFromEmail),
		RedisURL:             os.Getenv("REDIS_URL"),
		DefaultLanguage:      envOr("DEFAULT_LANGUAGE", DefaultLanguage),
		NotificationSyncCron: envOr("NOTIFICATION_SYNC_CRON", DefaultSyncCron),
	}

	if pubB64 := os.Getenv("JWT_PUBLIC_KEY_BASE64"); pubB64 != "" {
		key, err := ParseRSAPublicKey(pubB64)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to parse JWT_PUBLIC_KEY_BASE64")
		}
		cfg.RSAPublicKey = key
	} else if env != "dev" {
		utils.Logger.Fatal("JWT_PUBLIC_KEY_BASE64 env var is missing")
	} else {
		utils.Logger.Warn("JWT_PUBLIC_KEY_BASE64 not set; API routes will reject every request")
	}

	ldSDKKey := os.Getenv("LD_SDK_KEY")
	if ldSDKKey == "" {
		utils.Logger.Warn("LD_SDK_KEY not set; using default flag values")
		cfg.LDFlag_CORSHighSecurity = env != "dev"
		return cfg
	}
	loadFlags(cfg, ldSDKKey)
	return cfg
}

func loadFlags(cfg *Config, sdkKey string) {
	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	key := LDServerContextKey
	if key == "" {
		key = AppName + "-" + cfg.Env
	}
	ctx := ldcontext.NewWithKind(ldcontext.Kind(defaultLDContextKind), key)

	boolFlag := func(name string, def bool) bool {
		v, err := ldClient.BoolVariation(name, ctx, def)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", name)
		}
		utils.Logger.Debugf("%s flag: %t", name, v)
		return v
	}

	cfg.LDFlag_SeedDbWithTestData = boolFlag("seed_db_with_test_data", false)
	cfg.LDFlag_CORSHighSecurity = boolFlag("cors_high_security", true)
	cfg.LDFlag_SendgridSandboxMode = boolFlag("sendgrid_sandbox_mode", false)
	cfg.LDFlag_EmailApprovalRequests = boolFlag("email_approval_requests", false)
}

// ParseRSAPublicKey decodes a base64-wrapped PEM public key.
func ParseRSAPublicKey(b64 string) (*rsa.PublicKey, error) {
	pubPEM, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(pubPEM); block == nil {
		return nil, jwt.ErrKeyMustBePEMEncoded
	}
	return jwt.ParseRSAPublicKeyFromPEM(pubPEM)
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func (c *Config) Close() {}
