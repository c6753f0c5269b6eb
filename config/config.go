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
	AppPort string
	AppMode string

	JWTSecret    string
	JWTExpiryMin int
	AdminSecret  string

	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3Endpoint     string

	RootFolder       string
	ExcludedFolders  []string
	StatisticsFolder string
	StatisticsFile   string

	UseAllowedUsers bool
	AllowedUsers    []string

	VideoTransportCapMB float64
	PromptInterval      time.Duration
	ScratchDir          string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	FolderCacheTTL time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:          getEnv("APP_PORT", "8080"),
		AppMode:          getEnv("APP_MODE", "debug"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin:     getEnvAsInt("JWT_EXPIRY_MIN", 60),
		AdminSecret:      getEnv("ADMIN_SECRET", ""),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3SessionToken:   getEnv("S3_SESSION_TOKEN", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		RootFolder:       getEnv("ROOT_FOLDER", "Upload"),
		ExcludedFolders:  getEnvAsList("EXCLUDED_FOLDERS", ""),
		StatisticsFolder: getEnv("STATISTICS_FOLDER", "Statistics"),
		StatisticsFile:   getEnv("STATISTICS_FILE", "statistics.csv"),
		UseAllowedUsers:  getEnvAsBool("USE_ALLOWED_USERS", false),
		AllowedUsers:     getEnvAsList("ALLOWED_USERS", ""),

		VideoTransportCapMB: float64(getEnvAsInt("VIDEO_TRANSPORT_CAP_MB", 20)),
		PromptInterval:      time.Duration(getEnvAsInt("PROMPT_INTERVAL_SEC", 5)) * time.Second,
		ScratchDir:          getEnv("SCRATCH_DIR", "downloads"),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		FolderCacheTTL: time.Duration(getEnvAsInt("FOLDER_CACHE_TTL_SEC", 300)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	return strings.EqualFold(valueStr, "true") || valueStr == "1"
}

func getEnvAsList(key, fallback string) []string {
	valueStr := getEnv(key, fallback)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
