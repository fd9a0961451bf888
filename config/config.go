package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Security SecurityConfig
	Session  SessionConfig
	Shop     ShopConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type CatalogConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type SecurityConfig struct {
	GeneralWindow time.Duration
	GeneralMax    int
	StrictWindow  time.Duration
	StrictMax     int
	OrderWindow   time.Duration
	OrderMax      int

	SpeedWindow     time.Duration
	SpeedDelayAfter int
	SpeedDelayStep  time.Duration
	SpeedMaxDelay   time.Duration

	MaxBodyBytes int64

	AdminIPs []string
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type ShopConfig struct {
	Country               string
	FreeShippingThreshold float64
	ShippingFee           float64
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  env,
		},
		Catalog: CatalogConfig{
			BaseURL:        getEnv("CATALOG_URL", "http://localhost/wp-json/wc/v3"),
			ConsumerKey:    getEnv("CATALOG_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("CATALOG_CONSUMER_SECRET", ""),
			Timeout:        getDuration("CATALOG_TIMEOUT_SECONDS", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN: getEnv("CONTENT_DB_DSN", "wordpress_user:@tcp(localhost:3306)/wordpress?parseTime=true"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-audit"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Security: SecurityConfig{
			GeneralWindow: getDuration("RATE_GENERAL_WINDOW_SECONDS", 15*time.Minute),
			GeneralMax:    getInt("RATE_GENERAL_MAX", 100),
			StrictWindow:  getDuration("RATE_STRICT_WINDOW_SECONDS", 15*time.Minute),
			StrictMax:     getInt("RATE_STRICT_MAX", 5),
			OrderWindow:   getDuration("RATE_ORDER_WINDOW_SECONDS", time.Hour),
			OrderMax:      getInt("RATE_ORDER_MAX", 10),

			SpeedWindow:     getDuration("SPEED_WINDOW_SECONDS", 15*time.Minute),
			SpeedDelayAfter: getInt("SPEED_DELAY_AFTER", 50),
			SpeedDelayStep:  getDuration("SPEED_DELAY_STEP_MS", 500*time.Millisecond),
			SpeedMaxDelay:   getDuration("SPEED_MAX_DELAY_SECONDS", 20*time.Second),

			MaxBodyBytes: int64(getInt("MAX_BODY_BYTES", 100<<10)),

			AdminIPs: splitNonEmpty(getEnv("ADMIN_IPS", "")),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "sessionId"),
			TTL:        getDuration("SESSION_TTL_SECONDS", 2*time.Hour),
			Secure:     env == "production",
		},
		Shop: ShopConfig{
			Country:               getEnv("SHOP_COUNTRY", "India"),
			FreeShippingThreshold: getFloat("FREE_SHIPPING_THRESHOLD", 5000),
			ShippingFee:           getFloat("SHIPPING_FEE", 200),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getDuration reads a duration in the unit named by the key suffix
// (seconds unless the key ends in _MS).
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	if strings.HasSuffix(key, "_MS") {
		return time.Duration(n) * time.Millisecond
	}
	return time.Duration(n) * time.Second
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
