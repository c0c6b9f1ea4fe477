package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const EnvPrefix = "LIVEQUIZ"

type Config struct {
	Port        int
	BindAddress string
	PublicURL   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration

	NATSURL           string
	NATSSubjectPrefix string

	JWTSecret string
	TokenTTL  time.Duration

	QuizDir        string
	MaxPlayers     int
	TickInterval   time.Duration
	RevealDuration time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string

	LogLevel string
	LogJSON  bool
}

// RegisterFlags declares every setting on fs with its default.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: LIVEQUIZ_PORT)")
	fs.StringVarP(&cfg.BindAddress, "bind", "b", "0.0.0.0", "address to bind to (env: LIVEQUIZ_BIND)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "base URL used in join links, derived from the request when empty (env: LIVEQUIZ_PUBLIC_URL)")

	fs.StringVar(&cfg.DBHost, "db-host", "", "postgres host, empty disables the database (env: LIVEQUIZ_DB_HOST)")
	fs.StringVar(&cfg.DBPort, "db-port", "5432", "postgres port (env: LIVEQUIZ_DB_PORT)")
	fs.StringVar(&cfg.DBUser, "db-user", "livequiz", "postgres user (env: LIVEQUIZ_DB_USER)")
	fs.StringVar(&cfg.DBPassword, "db-password", "", "postgres password (env: LIVEQUIZ_DB_PASSWORD)")
	fs.StringVar(&cfg.DBName, "db-name", "livequiz", "postgres database (env: LIVEQUIZ_DB_NAME)")

	fs.StringVar(&cfg.RedisHost, "redis-host", "", "redis host, empty disables the snapshot cache (env: LIVEQUIZ_REDIS_HOST)")
	fs.StringVar(&cfg.RedisPort, "redis-port", "6379", "redis port (env: LIVEQUIZ_REDIS_PORT)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: LIVEQUIZ_REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: LIVEQUIZ_REDIS_DB)")
	fs.DurationVar(&cfg.SnapshotTTL, "snapshot-ttl", 2*time.Hour, "how long room snapshots stay cached (env: LIVEQUIZ_SNAPSHOT_TTL)")

	fs.StringVar(&cfg.NATSURL, "nats-url", "", "NATS server, empty disables the event bridge (env: LIVEQUIZ_NATS_URL)")
	fs.StringVar(&cfg.NATSSubjectPrefix, "nats-subject-prefix", "livequiz.rooms", "subject prefix for bridged room events (env: LIVEQUIZ_NATS_SUBJECT_PREFIX)")

	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret for host tokens, random per process when empty (env: LIVEQUIZ_JWT_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 6*time.Hour, "host token lifetime (env: LIVEQUIZ_TOKEN_TTL)")

	fs.StringVar(&cfg.QuizDir, "quiz-dir", "", "directory of YAML quizzes served when no database is configured (env: LIVEQUIZ_QUIZ_DIR)")
	fs.IntVar(&cfg.MaxPlayers, "max-players", 0, "default room capacity, 0 for unlimited (env: LIVEQUIZ_MAX_PLAYERS)")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", time.Second, "countdown tick interval (env: LIVEQUIZ_TICK_INTERVAL)")
	fs.DurationVar(&cfg.RevealDuration, "reveal-duration", 0, "time the answer is shown before moving on, 0 waits for the host (env: LIVEQUIZ_REVEAL_DURATION)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", 30*time.Minute, "time before idle rooms are closed (env: LIVEQUIZ_IDLE_TIMEOUT)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", []string{"*"}, "CORS origins (env: LIVEQUIZ_ALLOWED_ORIGINS)")

	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level (env: LIVEQUIZ_LOG_LEVEL)")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "log JSON instead of console output (env: LIVEQUIZ_LOG_JSON)")
}

// BindEnv lets LIVEQUIZ_* variables, including ones from a .env file,
// fill any flag not set on the command line. Call it after the flags are
// parsed. A .env file that cannot be read is reported but the environment
// is still applied.
func BindEnv(fs *pflag.FlagSet) error {
	var envErr error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		envErr = fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
	return envErr
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MaxPlayers < 0 {
		return fmt.Errorf("invalid max players: %d", c.MaxPlayers)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive: %s", c.TickInterval)
	}
	if c.RevealDuration < 0 {
		return fmt.Errorf("reveal duration must not be negative: %s", c.RevealDuration)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive: %s", c.IdleTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.PublicURL != "" && !strings.HasPrefix(c.PublicURL, "http://") && !strings.HasPrefix(c.PublicURL, "https://") {
		return fmt.Errorf("public URL must start with http:// or https://: %s", c.PublicURL)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

func (c *Config) DatabaseEnabled() bool { return c.DBHost != "" }
func (c *Config) RedisEnabled() bool    { return c.RedisHost != "" }
func (c *Config) NATSEnabled() bool     { return c.NATSURL != "" }

// SetupLogging configures the global zerolog logger.
func SetupLogging(c *Config) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !c.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("connected to database")
	return db, nil
}

func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", client.Options().Addr).Msg("connected to redis")
	return client, nil
}

func InitNATS(cfg *Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("livequiz"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")
	return nc, nil
}
