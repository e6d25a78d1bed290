package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       int    `env:"PORT" envDefault:"8080"`
	Dsn        string `env:"DSN" envDefault:"postgres://localhost:5432/geoplaylists"`
	RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	NatsURL    string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	JwtSecret  string `env:"JWT_SECRET,required,notEmpty"`
	JwtExpires string `env:"JWT_EXPIRES" envDefault:"24h"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`

	// a "*" entry allows any origin and turns off credentialed requests
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:8081"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURL  string `env:"SPOTIFY_REDIRECT_URL" envDefault:"http://localhost:8080/spotify/callback"`
	SpotifyAPIURL       string `env:"SPOTIFY_API_URL" envDefault:"https://api.spotify.com/v1"`

	StadiaAPIKey string `env:"STADIA_API_KEY"`
	StadiaURL    string `env:"STADIA_URL" envDefault:"https://api.stadiamaps.com"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	// background evaluation cadence; the host scheduler is best effort
	BackgroundInterval time.Duration `env:"BACKGROUND_INTERVAL" envDefault:"30s"`
	LocationTTL        time.Duration `env:"LOCATION_TTL" envDefault:"10m"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("[Env]: failed to parse environment variables: %v", err)
	}

	return cfg
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
