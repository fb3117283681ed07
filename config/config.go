package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/charity-campaigns-go/repository"
	"github.com/phillip/charity-campaigns-go/services"
	"github.com/phillip/charity-campaigns-go/utils"
)

// Config holds settings read from the environment and the dependencies
// built from them.
type Config struct {
	Port           string
	MongoURI       string
	DBName         string
	JWTSecret      string
	JWTTTL         time.Duration
	CORSOrigins    []string
	GinMode        string
	LogLevel       string
	LogFormat      string
	LoginRateLimit int // attempts per IP per minute

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	ZeptoAPIURL string
	ZeptoAPIKey string
	EmailFrom   string

	AdminEmail    string
	AdminPassword string

	MongoClient *mongo.Client
	Store       repository.Pinger
	Images      services.ImageStore
	Campaigns   *services.CampaignService
	Users       *services.UserService
	Auth        *services.AuthService
	Logger      *slog.Logger
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "5000"),
		MongoURI:            os.Getenv("MONGO_URI"),
		DBName:              getEnv("DB_NAME", "charity"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		GinMode:             os.Getenv("GIN_MODE"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		ZeptoAPIURL:         os.Getenv("ZEPTO_API_URL"),
		ZeptoAPIKey:         os.Getenv("ZEPTO_API_KEY"),
		EmailFrom:           os.Getenv("EMAIL_FROM"),
		AdminEmail:          os.Getenv("ADMIN_EMAIL"),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL %q", os.Getenv("JWT_TTL"))
	}
	cfg.JWTTTL = ttl

	limit, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "10"))
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT %q", os.Getenv("LOGIN_RATE_LIMIT"))
	}
	cfg.LoginRateLimit = limit

	if cfg.JWTSecret == "" && cfg.MongoURI != "" {
		return nil, fmt.Errorf("JWT_SECRET is required when MONGO_URI is set")
	}
	return cfg, nil
}

// Connect builds the storage backend and services. Without MONGO_URI the
// in-memory store is used and nothing survives a restart.
func (cfg *Config) Connect(ctx context.Context) error {
	if cfg.Logger == nil {
		cfg.Logger = SetupLogger(cfg.LogLevel, cfg.LogFormat)
	}
	log := cfg.Logger

	var (
		campaigns repository.CampaignRepository
		users     repository.UserRepository
	)
	if cfg.MongoURI == "" {
		log.Warn("MONGO_URI not set, using in-memory storage")
		mc := repository.NewMemoryCampaigns()
		campaigns, users, cfg.Store = mc, repository.NewMemoryUsers(), mc
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			return fmt.Errorf("ping mongo: %w", err)
		}
		cfg.MongoClient = client

		db := client.Database(cfg.DBName)
		mc, mu := repository.NewMongoCampaigns(db), repository.NewMongoUsers(db)
		if err := mc.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := mu.EnsureIndexes(ctx); err != nil {
			return err
		}
		campaigns, users, cfg.Store = mc, mu, mc
		log.Info("connected to mongo", "db", cfg.DBName)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		log.Warn("JWT_SECRET not set, generated an ephemeral secret")
	}
	cfg.Auth = services.NewAuthService(cfg.JWTSecret, cfg.JWTTTL)

	opts := []services.CampaignOption{services.WithCampaignLogger(log)}
	if cfg.CloudinaryCloudName != "" {
		images, err := utils.NewCloudinaryImages(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return err
		}
		cfg.Images = images
		opts = append(opts, services.WithImageStore(images))
	}
	if cfg.ZeptoAPIURL != "" {
		mailer, err := utils.NewZeptoMailer(cfg.ZeptoAPIURL, cfg.ZeptoAPIKey, cfg.EmailFrom)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithDonationNotifier(mailer))
	}

	cfg.Campaigns = services.NewCampaignService(campaigns, users, opts...)
	cfg.Users = services.NewUserService(users, cfg.Auth, log)

	if cfg.AdminEmail != "" {
		if _, err := cfg.Users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}
	return nil
}

// Close releases the Mongo connection, if any.
func (cfg *Config) Close(ctx context.Context) error {
	if cfg.MongoClient == nil {
		return nil
	}
	return cfg.MongoClient.Disconnect(ctx)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(b)
}
