package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Optimizer OptimizerConfig
	Impact    ImpactConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers        []string
	ReportsTopic   string
	DecisionsTopic string
	ConsumerGroup  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OptimizerConfig holds the thresholds and throttles the decision engines
// run with. All values are validated at startup so a bad deployment fails
// fast instead of emitting bid changes from nonsense inputs.
type OptimizerConfig struct {
	TargetROAS       float64
	UpThrottle       float64
	DownThrottle     float64
	MaxBidChangePct  float64
	MinBidFloor      float64
	MinBidMultiplier float64
	MaxBidMultiplier float64

	CVRFloor   float64
	CVRCeiling float64

	SoftNegativeFloor float64
	HardStopFloor     float64
	HardStopMult      float64

	HarvestClicks     float64
	HarvestROASMult   float64
	HarvestLaunchMult float64

	DedupeSimilarity float64

	BenchmarkWinsorPct  float64
	BenchmarkSpendFloor float64

	MinClicksExact  int64
	MinClicksPT     int64
	MinClicksBroad  int64
	MinClicksAuto   int64
	MinClicksObserv int64

	VisibilityMinDays        int
	VisibilityMaxImpressions int64
	VisibilityBoostPct       float64

	// ExternalNegativeASINs are competitor ASINs supplied from outside the
	// performance data, negated wherever they show up as search terms.
	ExternalNegativeASINs []string
}

// ImpactConfig holds the attribution window settings.
type ImpactConfig struct {
	HorizonDays        int
	MaturityBufferDays int
	FallbackWindowDays int
	SummaryCacheTTL    int // seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "ppc"),
			Password: getEnv("DB_PASSWORD", "ppc"),
			DBName:   getEnv("DB_NAME", "ppc_decisions"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			ReportsTopic:   getEnv("KAFKA_REPORTS_TOPIC", "ppc.reports"),
			DecisionsTopic: getEnv("KAFKA_DECISIONS_TOPIC", "ppc.decisions"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "decision-engine"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Optimizer: OptimizerConfig{
			TargetROAS:       getEnvFloat("TARGET_ROAS", 2.5),
			UpThrottle:       getEnvFloat("BID_UP_THROTTLE", 0.50),
			DownThrottle:     getEnvFloat("BID_DOWN_THROTTLE", 0.50),
			MaxBidChangePct:  getEnvFloat("MAX_BID_CHANGE_PCT", 0.25),
			MinBidFloor:      getEnvFloat("MIN_BID_FLOOR", 0.30),
			MinBidMultiplier: getEnvFloat("MIN_BID_MULTIPLIER", 0.50),
			MaxBidMultiplier: getEnvFloat("MAX_BID_MULTIPLIER", 3.00),

			CVRFloor:   getEnvFloat("CVR_FLOOR", 0.01),
			CVRCeiling: getEnvFloat("CVR_CEILING", 0.20),

			SoftNegativeFloor: getEnvFloat("SOFT_NEGATIVE_FLOOR", 10),
			HardStopFloor:     getEnvFloat("HARD_STOP_FLOOR", 15),
			HardStopMult:      getEnvFloat("HARD_STOP_MULTIPLIER", 3.0),

			HarvestClicks:     getEnvFloat("HARVEST_CLICKS", 10),
			HarvestROASMult:   getEnvFloat("HARVEST_ROAS_MULT", 1.2),
			HarvestLaunchMult: getEnvFloat("HARVEST_LAUNCH_MULT", 1.1),

			DedupeSimilarity: getEnvFloat("DEDUPE_SIMILARITY", 0.85),

			BenchmarkWinsorPct:  getEnvFloat("BENCHMARK_WINSOR_PCT", 99),
			BenchmarkSpendFloor: getEnvFloat("BENCHMARK_SPEND_FLOOR", 5.0),

			MinClicksExact:  getEnvInt64("MIN_CLICKS_EXACT", 5),
			MinClicksPT:     getEnvInt64("MIN_CLICKS_PT", 5),
			MinClicksBroad:  getEnvInt64("MIN_CLICKS_BROAD", 8),
			MinClicksAuto:   getEnvInt64("MIN_CLICKS_AUTO", 8),
			MinClicksObserv: getEnvInt64("MIN_CLICKS_OBSERVATION", 10),

			VisibilityMinDays:        getEnvInt("VISIBILITY_MIN_DAYS", 14),
			VisibilityMaxImpressions: getEnvInt64("VISIBILITY_MAX_IMPRESSIONS", 100),
			VisibilityBoostPct:       getEnvFloat("VISIBILITY_BOOST_PCT", 0.30),

			ExternalNegativeASINs: parseList(getEnv("EXTERNAL_NEGATIVE_ASINS", "")),
		},
		Impact: ImpactConfig{
			HorizonDays:        getEnvInt("IMPACT_HORIZON_DAYS", 14),
			MaturityBufferDays: getEnvInt("IMPACT_MATURITY_BUFFER_DAYS", 3),
			FallbackWindowDays: getEnvInt("IMPACT_FALLBACK_WINDOW_DAYS", 7),
			SummaryCacheTTL:    getEnvInt("IMPACT_SUMMARY_CACHE_TTL", 300),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects threshold combinations the engines cannot run with.
func (c *Config) Validate() error {
	o := c.Optimizer
	if o.TargetROAS <= 0 {
		return fmt.Errorf("config: TARGET_ROAS must be positive, got %v", o.TargetROAS)
	}
	if o.UpThrottle < 0 || o.UpThrottle > 1 {
		return fmt.Errorf("config: BID_UP_THROTTLE must be in [0,1], got %v", o.UpThrottle)
	}
	if o.DownThrottle < 0 || o.DownThrottle > 1 {
		return fmt.Errorf("config: BID_DOWN_THROTTLE must be in [0,1], got %v", o.DownThrottle)
	}
	if o.MaxBidChangePct <= 0 || o.MaxBidChangePct > 1 {
		return fmt.Errorf("config: MAX_BID_CHANGE_PCT must be in (0,1], got %v", o.MaxBidChangePct)
	}
	if o.MinBidFloor <= 0 {
		return fmt.Errorf("config: MIN_BID_FLOOR must be positive, got %v", o.MinBidFloor)
	}
	if o.MinBidMultiplier <= 0 || o.MinBidMultiplier >= o.MaxBidMultiplier {
		return fmt.Errorf("config: bid multipliers must satisfy 0 < min < max, got min=%v max=%v",
			o.MinBidMultiplier, o.MaxBidMultiplier)
	}
	if o.CVRFloor <= 0 || o.CVRFloor >= o.CVRCeiling {
		return fmt.Errorf("config: CVR bounds must satisfy 0 < floor < ceiling, got floor=%v ceiling=%v",
			o.CVRFloor, o.CVRCeiling)
	}
	if o.SoftNegativeFloor <= 0 || o.HardStopFloor < o.SoftNegativeFloor {
		return fmt.Errorf("config: negative click floors must satisfy 0 < soft <= hard, got soft=%v hard=%v",
			o.SoftNegativeFloor, o.HardStopFloor)
	}
	if o.HarvestClicks <= 0 {
		return fmt.Errorf("config: HARVEST_CLICKS must be positive, got %v", o.HarvestClicks)
	}
	if o.HarvestLaunchMult <= 0 {
		return fmt.Errorf("config: HARVEST_LAUNCH_MULT must be positive, got %v", o.HarvestLaunchMult)
	}
	if o.DedupeSimilarity < 0 || o.DedupeSimilarity > 1 {
		return fmt.Errorf("config: DEDUPE_SIMILARITY must be in [0,1], got %v", o.DedupeSimilarity)
	}
	if o.BenchmarkWinsorPct <= 50 || o.BenchmarkWinsorPct > 100 {
		return fmt.Errorf("config: BENCHMARK_WINSOR_PCT must be in (50,100], got %v", o.BenchmarkWinsorPct)
	}
	i := c.Impact
	if i.HorizonDays <= 0 {
		return fmt.Errorf("config: IMPACT_HORIZON_DAYS must be positive, got %v", i.HorizonDays)
	}
	if i.MaturityBufferDays < 0 {
		return fmt.Errorf("config: IMPACT_MATURITY_BUFFER_DAYS must be non-negative, got %v", i.MaturityBufferDays)
	}
	if i.FallbackWindowDays <= 0 {
		return fmt.Errorf("config: IMPACT_FALLBACK_WINDOW_DAYS must be positive, got %v", i.FallbackWindowDays)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	return parseList(brokers)
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}
