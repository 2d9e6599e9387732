package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	S3       S3Config
	Payment  PaymentConfig
	Workflow WorkflowConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string

	// PortalBaseURL is where the browser returns after payment when the request has no Origin
	PortalBaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
}

// S3Config configures document uploads; an empty bucket disables presigning
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type PaymentConfig struct {
	HimKosh HimKoshConfig
}

// HimKoshConfig carries everything the treasury gateway integration needs.
// The key is either inline (HIMKOSH_KEY) or read from HIMKOSH_KEY_FILE.
type HimKoshConfig struct {
	PaymentURL   string
	VerifyURL    string
	MerchantCode string
	ServiceCode  string
	DeptID       string
	Head1        string
	Head2        string
	Amount2      int64
	ReturnURL    string
	Key          string
	KeyFile      string
	FallbackDDO  string
	TestMode     bool
	TestAmount   int64
}

type WorkflowConfig struct {
	MaxRooms            int
	RenewalWindowDays   int
	CertificateValidity int // years
	ReconcileCron       string
	ReconcileAfter      time.Duration
	OutboxInterval      time.Duration
	OutboxBatchSize     int
	SettingsCacheTTL    time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),

			PortalBaseURL: getEnv("PORTAL_BASE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "homestay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "50"), 50),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
			ConnectAttempts: parseInt(getEnv("DB_CONNECT_ATTEMPTS", "5"), 5),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry: parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "8h"), 8*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			LockTTL:  parseDuration(getEnv("REDIS_LOCK_TTL", "15s"), 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           parseSlice(getEnv("KAFKA_BROKERS", "")),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "homestay.notifications"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Payment: PaymentConfig{
			HimKosh: HimKoshConfig{
				PaymentURL:   getEnv("HIMKOSH_PAYMENT_URL", "https://himkosh.hp.nic.in/echallan/WebPages/wrfApplicationRequest.aspx"),
				VerifyURL:    getEnv("HIMKOSH_VERIFY_URL", "https://himkosh.hp.nic.in/echallan/WebPages/wrfApplicationVerification.aspx"),
				MerchantCode: getEnv("HIMKOSH_MERCHANT_CODE", "HIMKOSH230"),
				ServiceCode:  getEnv("HIMKOSH_SERVICE_CODE", "TSM"),
				DeptID:       getEnv("HIMKOSH_DEPT_ID", "230"),
				Head1:        getEnv("HIMKOSH_HEAD1", "1452-00-800-01"),
				Head2:        getEnv("HIMKOSH_HEAD2", ""),
				Amount2:      int64(parseInt(getEnv("HIMKOSH_AMOUNT2", "0"), 0)),
				ReturnURL:    getEnv("HIMKOSH_RETURN_URL", "http://localhost:8080/api/v1/payment/callback"),
				Key:          getEnv("HIMKOSH_KEY", ""),
				KeyFile:      getEnv("HIMKOSH_KEY_FILE", ""),
				FallbackDDO:  getEnv("HIMKOSH_FALLBACK_DDO", "SML00-532"),
				TestMode:     parseBool(getEnv("HIMKOSH_TEST_MODE", "false")),
				TestAmount:   int64(parseInt(getEnv("HIMKOSH_TEST_AMOUNT", "1"), 1)),
			},
		},
		Workflow: WorkflowConfig{
			MaxRooms:            parseInt(getEnv("WORKFLOW_MAX_ROOMS", "6"), 6),
			RenewalWindowDays:   parseInt(getEnv("WORKFLOW_RENEWAL_WINDOW_DAYS", "90"), 90),
			CertificateValidity: parseInt(getEnv("WORKFLOW_CERTIFICATE_VALIDITY_YEARS", "1"), 1),
			ReconcileCron:       getEnv("WORKFLOW_RECONCILE_CRON", "*/15 * * * *"),
			ReconcileAfter:      parseDuration(getEnv("WORKFLOW_RECONCILE_AFTER", "30m"), 30*time.Minute),
			OutboxInterval:      parseDuration(getEnv("WORKFLOW_OUTBOX_INTERVAL", "2s"), 2*time.Second),
			OutboxBatchSize:     parseInt(getEnv("WORKFLOW_OUTBOX_BATCH_SIZE", "100"), 100),
			SettingsCacheTTL:    parseDuration(getEnv("WORKFLOW_SETTINGS_CACHE_TTL", "30s"), 30*time.Second),
		},
	}

	if config.Payment.HimKosh.Key == "" && config.Payment.HimKosh.KeyFile != "" {
		raw, err := os.ReadFile(config.Payment.HimKosh.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read himkosh key file: %w", err)
		}
		config.Payment.HimKosh.Key = strings.TrimSpace(string(raw))
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
