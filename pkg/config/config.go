package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	OperationalDB DBConfig `ignored:"true"`
	FeatureDB     DBConfig `ignored:"true"`
	Redis         RedisConfig
	GCP           GCPConfig
	GCS           GCSConfig
	BigQuery      BigQueryConfig
	Artifacts     ArtifactsConfig
	Sync          SyncConfig
	Inference     InferenceConfig
	Training      TrainingConfig
	FeatureFlags  FeatureFlagsConfig
}

// Load reads the full configuration from the environment. The two database
// roles are processed under their own prefixes so the operational and
// feature-store connections stay independently configurable.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix+"_MAIN_DB", &cfg.OperationalDB); err != nil {
		return nil, fmt.Errorf("parsing operational db config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix+"_ML_DB", &cfg.FeatureDB); err != nil {
		return nil, fmt.Errorf("parsing feature-store db config: %w", err)
	}
	if err := cfg.OperationalDB.ensureDSN(RoleOperational); err != nil {
		return nil, err
	}
	if err := cfg.FeatureDB.ensureDSN(RoleFeatureStore); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPPULSE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPPULSE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPPULSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPPULSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPPULSE_SERVICE_KIND" default:"sync-worker"`
}

// Role identifies which database a DBConfig points at.
type Role string

const (
	RoleOperational  Role = "operational"
	RoleFeatureStore Role = "feature-store"
)

type DBConfig struct {
	DSN    string `envconfig:"DSN"`
	Driver string `envconfig:"DRIVER" default:"postgres"`

	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"NAME"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPPULSE_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SHOPPULSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPPULSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPPULSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPPULSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPPULSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPPULSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPPULSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOPPULSE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHOPPULSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOPPULSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"SHOPPULSE_GCS_BUCKET_NAME"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"SHOPPULSE_BIGQUERY_DATASET" default:"shoppulse_ml"`
	TrainingRunTable string `envconfig:"SHOPPULSE_BIGQUERY_RUN_TABLE" default:"training_runs"`
	EpochMetricTable string `envconfig:"SHOPPULSE_BIGQUERY_EPOCH_TABLE" default:"training_epoch_metrics"`
}

// ArtifactsConfig controls where encoders and checkpoints live.
type ArtifactsConfig struct {
	LocalDir         string `envconfig:"SHOPPULSE_ARTIFACTS_DIR" default:"saved"`
	EncoderObject    string `envconfig:"SHOPPULSE_ARTIFACTS_ENCODER_OBJECT" default:"label_encoder.json"`
	CheckpointPrefix string `envconfig:"SHOPPULSE_ARTIFACTS_CHECKPOINT_PREFIX" default:"checkpoints/"`
}

type SyncConfig struct {
	Interval     time.Duration `envconfig:"SHOPPULSE_SYNC_INTERVAL" default:"1h"`
	WindowDays   int           `envconfig:"SHOPPULSE_SYNC_WINDOW_DAYS" default:"365"`
	RetireSource bool          `envconfig:"SHOPPULSE_SYNC_RETIRE_SOURCE" default:"false"`
}

type InferenceConfig struct {
	Interval   time.Duration `envconfig:"SHOPPULSE_INFERENCE_INTERVAL" default:"24h"`
	MaxDisplay int           `envconfig:"SHOPPULSE_INFERENCE_MAX_DISPLAY" default:"5"`
}

// TrainingConfig is the hyperparameter surface for cmd/train. Registry kinds
// (model, optimizer, scheduler, metrics) are resolved when the trainer is
// constructed, failing fast on unknown names.
type TrainingConfig struct {
	Seed            int64    `envconfig:"SHOPPULSE_TRAIN_SEED" default:"42"`
	Epochs          int      `envconfig:"SHOPPULSE_TRAIN_EPOCHS" default:"20"`
	BatchSize       int      `envconfig:"SHOPPULSE_TRAIN_BATCH_SIZE" default:"32"`
	Shuffle         bool     `envconfig:"SHOPPULSE_TRAIN_SHUFFLE" default:"true"`
	LearningRate    float64  `envconfig:"SHOPPULSE_TRAIN_LR" default:"0.001"`
	ModelKind       string   `envconfig:"SHOPPULSE_TRAIN_MODEL" default:"wide_and_deep"`
	OptimizerKind   string   `envconfig:"SHOPPULSE_TRAIN_OPTIMIZER" default:"adam"`
	SchedulerKind   string   `envconfig:"SHOPPULSE_TRAIN_SCHEDULER" default:"step"`
	SchedulerStep   int      `envconfig:"SHOPPULSE_TRAIN_SCHEDULER_STEP" default:"10"`
	SchedulerGamma  float64  `envconfig:"SHOPPULSE_TRAIN_SCHEDULER_GAMMA" default:"0.5"`
	Metrics         []string `envconfig:"SHOPPULSE_TRAIN_METRICS" default:"accuracy,precision,recall,f1"`
	DeepHiddenUnits []int    `envconfig:"SHOPPULSE_TRAIN_DEEP_HIDDEN_UNITS" default:"128,64"`
	DropoutP        float64  `envconfig:"SHOPPULSE_TRAIN_DROPOUT_P" default:"0.0"`
	LayerNorm       bool     `envconfig:"SHOPPULSE_TRAIN_LAYER_NORM" default:"true"`
	SavePeriod      int      `envconfig:"SHOPPULSE_TRAIN_SAVE_PERIOD" default:"5"`
	SaveDir         string   `envconfig:"SHOPPULSE_TRAIN_SAVE_DIR" default:"saved"`
	HoldoutRows     int      `envconfig:"SHOPPULSE_TRAIN_HOLDOUT_ROWS" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPPULSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPPULSE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(role Role) error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	if db.Host == "" {
		missing = append(missing, "HOST")
	}
	if db.User == "" {
		missing = append(missing, "USER")
	}
	if db.Name == "" {
		missing = append(missing, "NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s db: either DSN or %s are required", role, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
