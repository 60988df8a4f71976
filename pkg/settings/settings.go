package settings

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
	"github.com/go-go-golems/faqchat/pkg/chat"
	"github.com/go-go-golems/faqchat/pkg/llm"
	"github.com/go-go-golems/faqchat/pkg/logging"
	"github.com/go-go-golems/faqchat/pkg/redisstream"
)

// EnvPrefix is prepended to every flag name when read from the environment:
// --s3-bucket becomes FAQCHAT_S3_BUCKET.
const EnvPrefix = "FAQCHAT"

const (
	DefaultAddr          = ":8000"
	DefaultKnowledgeBase = "knowledge_base/qa_pairs.json"
	DefaultRegion        = "us-east-1"
	DefaultMaxAgeDays    = 30
	DefaultRateCalls     = 50
	DefaultRatePeriod    = 60 * time.Second
)

// Flag names; they double as viper keys.
const (
	FlagConfig          = "config"
	FlagAddr            = "addr"
	FlagStore           = "store"
	FlagS3Bucket        = "s3-bucket"
	FlagS3Region        = "s3-region"
	FlagS3AccessKey     = "s3-access-key"
	FlagS3SecretKey     = "s3-secret-key"
	FlagS3Endpoint      = "s3-endpoint"
	FlagRedisAddr       = "redis-addr"
	FlagRedisPassword   = "redis-password"
	FlagRedisDB         = "redis-db"
	FlagRedisNamespace  = "redis-namespace"
	FlagRedisEvents     = "redis-events"
	FlagRedisGroup      = "redis-group"
	FlagRedisConsumer   = "redis-consumer"
	FlagSQLitePath      = "sqlite-path"
	FlagBoltPath        = "bolt-path"
	FlagKnowledgeBase   = "knowledge-base"
	FlagCacheSize       = "cache-size"
	FlagCacheTTL        = "cache-ttl"
	FlagLLMAPIKey       = "llm-api-key"
	FlagLLMBaseURL      = "llm-base-url"
	FlagLLMModel        = "llm-model"
	FlagLLMFallback     = "llm-fallback"
	FlagLLMRateCalls    = "llm-rate-calls"
	FlagLLMRatePeriod   = "llm-rate-period"
	FlagCleanupInterval = "cleanup-interval"
	FlagMaxAgeDays      = "max-age-days"
	FlagLogLevel        = "log-level"
	FlagLogFormat       = "log-format"
)

// legacyEnv lists the unprefixed variable names deployments already set.
var legacyEnv = map[string][]string{
	FlagS3Bucket:    {"S3_BUCKET_NAME"},
	FlagS3Region:    {"AWS_REGION", "AWS_DEFAULT_REGION"},
	FlagS3AccessKey: {"AWS_ACCESS_KEY_ID"},
	FlagS3SecretKey: {"AWS_SECRET_ACCESS_KEY"},
	FlagLLMAPIKey:   {"GROQ_API_KEY"},
}

type Settings struct {
	Addr            string
	KnowledgeBase   string
	Store           blobstore.Options
	CacheSize       int
	CacheTTL        time.Duration
	LLM             LLM
	RedisEvents     bool
	Events          redisstream.Settings
	CleanupInterval time.Duration
	MaxAgeDays      int
	Log             logging.Settings
}

type LLM struct {
	llm.Settings
	Fallback   bool
	RateCalls  int
	RatePeriod time.Duration
}

// AddLoggingFlags registers the flags every command shares.
func AddLoggingFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "Path to a YAML config file")
	fs.String(FlagLogLevel, "info", "Log level (trace, debug, info, warn, error)")
	fs.String(FlagLogFormat, logging.FormatAuto, "Log format (auto, console, json)")
}

// AddStoreFlags registers the checkpoint storage flags.
func AddStoreFlags(fs *pflag.FlagSet) {
	fs.String(FlagStore, blobstore.BackendS3, "Checkpoint backend ("+strings.Join(blobstore.Backends, ", ")+")")
	fs.String(FlagS3Bucket, "", "S3 bucket holding chat histories (env S3_BUCKET_NAME)")
	fs.String(FlagS3Region, DefaultRegion, "S3 region (env AWS_REGION)")
	fs.String(FlagS3AccessKey, "", "S3 access key id (env AWS_ACCESS_KEY_ID)")
	fs.String(FlagS3SecretKey, "", "S3 secret access key (env AWS_SECRET_ACCESS_KEY)")
	fs.String(FlagS3Endpoint, "", "Custom S3-compatible endpoint")
	fs.String(FlagRedisAddr, "localhost:6379", "Redis address for the redis backend and event stream")
	fs.String(FlagRedisPassword, "", "Redis password")
	fs.Int(FlagRedisDB, 0, "Redis database")
	fs.String(FlagRedisNamespace, "faqchat", "Key namespace for the redis backend")
	fs.String(FlagSQLitePath, "faqchat.db", "SQLite database file for the sqlite backend")
	fs.String(FlagBoltPath, "faqchat.bolt", "bbolt database file for the bolt backend")
	fs.Int(FlagMaxAgeDays, DefaultMaxAgeDays, "Delete checkpoints older than this many days")
}

// AddServeFlags registers the flags used by the HTTP server.
func AddServeFlags(fs *pflag.FlagSet) {
	fs.String(FlagAddr, DefaultAddr, "Listen address")
	fs.String(FlagKnowledgeBase, DefaultKnowledgeBase, "Knowledge base file (JSON or YAML)")
	fs.Int(FlagCacheSize, chat.DefaultCacheSize, "Maximum number of cached sessions")
	fs.Duration(FlagCacheTTL, chat.DefaultCacheTTL, "Idle time before a cached session is dropped (0 keeps them)")
	fs.String(FlagLLMAPIKey, "", "API key for the OpenAI-compatible endpoint (env GROQ_API_KEY)")
	fs.String(FlagLLMBaseURL, llm.DefaultBaseURL, "Base URL of the OpenAI-compatible endpoint")
	fs.String(FlagLLMModel, llm.DefaultModel, "Model name")
	fs.Bool(FlagLLMFallback, false, "Ask the LLM when the knowledge base has no answer")
	fs.Int(FlagLLMRateCalls, DefaultRateCalls, "LLM client constructions allowed per period")
	fs.Duration(FlagLLMRatePeriod, DefaultRatePeriod, "LLM rate limit period")
	fs.Bool(FlagRedisEvents, false, "Publish checkpoint events to a Redis stream instead of in-process")
	fs.String(FlagRedisGroup, redisstream.DefaultGroup, "Redis consumer group for checkpoint events")
	fs.String(FlagRedisConsumer, "", "Redis consumer name (random when empty)")
	fs.Duration(FlagCleanupInterval, 0, "Interval between expired checkpoint sweeps (0 disables)")
}

// LoadDotEnv loads a .env file into the process environment. A missing file is
// not an error and variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil
		}
		return errors.Wrapf(err, "load %s", path)
	}
	log.Debug().Str("path", path).Msg("loaded environment file")
	return nil
}

// NewViper binds fs to a fresh viper instance: flags beat the environment, which
// beats the config file, which beats the flag defaults.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		args := append([]string{key, envName(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}
	if path := v.GetString(FlagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		log.Debug().Str("path", path).Msg("read config file")
	}
	return v, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// FromViper reads every known key; keys without a registered flag read as zero.
func FromViper(v *viper.Viper) (Settings, error) {
	s := Settings{
		Addr:          v.GetString(FlagAddr),
		KnowledgeBase: v.GetString(FlagKnowledgeBase),
		Store: blobstore.Options{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(FlagStore))),
			S3: blobstore.S3Options{
				Bucket:          v.GetString(FlagS3Bucket),
				Region:          v.GetString(FlagS3Region),
				AccessKeyID:     v.GetString(FlagS3AccessKey),
				SecretAccessKey: v.GetString(FlagS3SecretKey),
				Endpoint:        v.GetString(FlagS3Endpoint),
			},
			Redis: blobstore.RedisOptions{
				Addr:      v.GetString(FlagRedisAddr),
				Password:  v.GetString(FlagRedisPassword),
				DB:        v.GetInt(FlagRedisDB),
				Namespace: v.GetString(FlagRedisNamespace),
			},
			SQLitePath: v.GetString(FlagSQLitePath),
			BoltPath:   v.GetString(FlagBoltPath),
		},
		CacheSize: v.GetInt(FlagCacheSize),
		CacheTTL:  v.GetDuration(FlagCacheTTL),
		LLM: LLM{
			Settings: llm.Settings{
				APIKey:  v.GetString(FlagLLMAPIKey),
				BaseURL: v.GetString(FlagLLMBaseURL),
				Model:   v.GetString(FlagLLMModel),
			},
			Fallback:   v.GetBool(FlagLLMFallback),
			RateCalls:  v.GetInt(FlagLLMRateCalls),
			RatePeriod: v.GetDuration(FlagLLMRatePeriod),
		},
		RedisEvents: v.GetBool(FlagRedisEvents),
		Events: redisstream.Settings{
			Addr:     v.GetString(FlagRedisAddr),
			Password: v.GetString(FlagRedisPassword),
			DB:       v.GetInt(FlagRedisDB),
			Group:    v.GetString(FlagRedisGroup),
			Consumer: v.GetString(FlagRedisConsumer),
		},
		CleanupInterval: v.GetDuration(FlagCleanupInterval),
		MaxAgeDays:      v.GetInt(FlagMaxAgeDays),
		Log: logging.Settings{
			Level:  v.GetString(FlagLogLevel),
			Format: v.GetString(FlagLogFormat),
		},
	}
	if s.Store.Backend == "" {
		s.Store.Backend = blobstore.BackendS3
	}
	if s.Store.S3.Region == "" {
		s.Store.S3.Region = DefaultRegion
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	known := false
	for _, b := range blobstore.Backends {
		if s.Store.Backend == b {
			known = true
		}
	}
	if !known {
		return errors.Errorf("unknown store %q (expected one of %s)", s.Store.Backend, strings.Join(blobstore.Backends, ", "))
	}
	if s.Store.Backend == blobstore.BackendS3 && strings.TrimSpace(s.Store.S3.Bucket) == "" {
		return errors.New("s3 store needs a bucket: set --s3-bucket or S3_BUCKET_NAME")
	}
	if s.MaxAgeDays < 0 {
		return errors.Errorf("max-age-days must not be negative, got %d", s.MaxAgeDays)
	}
	if s.CleanupInterval < 0 {
		return errors.Errorf("cleanup-interval must not be negative, got %s", s.CleanupInterval)
	}
	if s.LLM.Fallback && strings.TrimSpace(s.LLM.APIKey) == "" {
		return errors.New("llm-fallback needs an api key: set --llm-api-key or GROQ_API_KEY")
	}
	return nil
}
