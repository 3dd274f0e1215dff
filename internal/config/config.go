package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Kafka      KafkaConfig      `validate:"required"`
	Transport  TransportConfig  `validate:"required"`
	Routing    RoutingConfig    `validate:"required"`
	Settlement SettlementConfig `validate:"required"`
	Sentry     SentryConfig
	Pyroscope  PyroscopeConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required,oneof=local consumer scheduler"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool   `mapstructure:"auto_migrate" default:"false"`
	ConnectRetries         uint64 `mapstructure:"connect_retries" default:"5"`
}

type KafkaConfig struct {
	Brokers       []string             `mapstructure:"brokers"`
	ConsumerGroup string               `mapstructure:"consumer_group"`
	ClientID      string               `mapstructure:"client_id"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
}

// TransportConfig controls how the event gateway talks to the message broker
type TransportConfig struct {
	PubSub types.PubSubType `mapstructure:"pubsub" validate:"required,oneof=memory kafka"`
	// RedeliverOnFailure nacks messages whose handler failed with a transient
	// error so the broker delivers them again. Off by default.
	RedeliverOnFailure bool          `mapstructure:"redeliver_on_failure"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0"`
	InitialInterval    time.Duration `mapstructure:"initial_interval"`
	MaxInterval        time.Duration `mapstructure:"max_interval"`
	Multiplier         float64       `mapstructure:"multiplier"`
	MaxElapsedTime     time.Duration `mapstructure:"max_elapsed_time"`
}

// RoutingConfig names the broker routing keys used for each conversation
type RoutingConfig struct {
	TryPayment          string `mapstructure:"try_payment" validate:"required"`
	RegisterArrivalDate string `mapstructure:"register_arrival_date" validate:"required"`
	Unregister          string `mapstructure:"unregister" validate:"required"`
	ActiveContract      string `mapstructure:"active_contract" validate:"required"`
	PaymentResult       string `mapstructure:"payment_result" validate:"required"`
	ArrivalDate         string `mapstructure:"arrival_date" validate:"required"`
	FSMCommand          string `mapstructure:"fsm_command" validate:"required"`
	AccountRecharge     string `mapstructure:"account_recharge" validate:"required"`
}

type SettlementConfig struct {
	// Enabled starts the cron schedule. The operator trigger works either way.
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule" validate:"required"`
	Lookback time.Duration `mapstructure:"lookback" validate:"required,gt=0"`
	PageSize int           `mapstructure:"page_size" validate:"required,gt=0"`
	// QueueCapacity bounds the number of batches buffered between scanner and processor
	QueueCapacity int `mapstructure:"queue_capacity" validate:"required,gt=0"`
	Workers       int `mapstructure:"workers" validate:"required,gt=0"`
	// PublishRate caps try-payment publications per second, 0 means unlimited
	PublishRate  float64 `mapstructure:"publish_rate" validate:"gte=0"`
	PublishBurst int     `mapstructure:"publish_burst" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" default:"1.0"`
}

type PyroscopeConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	ServerAddress   string   `mapstructure:"server_address"`
	ApplicationName string   `mapstructure:"application_name"`
	BasicAuthUser   string   `mapstructure:"basic_auth_user"`
	BasicAuthPass   string   `mapstructure:"basic_auth_password"`
	SampleRate      uint32   `mapstructure:"sample_rate"`
	DisableGCRuns   bool     `mapstructure:"disable_gc_runs"`
	ProfileTypes    []string `mapstructure:"profile_types"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only meant for local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/contractflow")

	v.SetEnvPrefix("CONTRACTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from config.yaml
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("postgres.auto_migrate", d.Postgres.AutoMigrate)
	v.SetDefault("postgres.connect_retries", d.Postgres.ConnectRetries)

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.consumer_group", d.Kafka.ConsumerGroup)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("kafka.tls", false)
	v.SetDefault("kafka.use_sasl", false)

	v.SetDefault("transport.pubsub", d.Transport.PubSub)
	v.SetDefault("transport.redeliver_on_failure", d.Transport.RedeliverOnFailure)
	v.SetDefault("transport.max_retries", d.Transport.MaxRetries)
	v.SetDefault("transport.initial_interval", d.Transport.InitialInterval)
	v.SetDefault("transport.max_interval", d.Transport.MaxInterval)
	v.SetDefault("transport.multiplier", d.Transport.Multiplier)
	v.SetDefault("transport.max_elapsed_time", d.Transport.MaxElapsedTime)

	v.SetDefault("routing.try_payment", d.Routing.TryPayment)
	v.SetDefault("routing.register_arrival_date", d.Routing.RegisterArrivalDate)
	v.SetDefault("routing.unregister", d.Routing.Unregister)
	v.SetDefault("routing.active_contract", d.Routing.ActiveContract)
	v.SetDefault("routing.payment_result", d.Routing.PaymentResult)
	v.SetDefault("routing.arrival_date", d.Routing.ArrivalDate)
	v.SetDefault("routing.fsm_command", d.Routing.FSMCommand)
	v.SetDefault("routing.account_recharge", d.Routing.AccountRecharge)

	v.SetDefault("settlement.enabled", d.Settlement.Enabled)
	v.SetDefault("settlement.schedule", d.Settlement.Schedule)
	v.SetDefault("settlement.lookback", d.Settlement.Lookback)
	v.SetDefault("settlement.page_size", d.Settlement.PageSize)
	v.SetDefault("settlement.queue_capacity", d.Settlement.QueueCapacity)
	v.SetDefault("settlement.workers", d.Settlement.Workers)
	v.SetDefault("settlement.publish_rate", d.Settlement.PublishRate)
	v.SetDefault("settlement.publish_burst", d.Settlement.PublishBurst)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.sample_rate", d.Sentry.SampleRate)
	v.SetDefault("pyroscope.enabled", false)
	v.SetDefault("pyroscope.application_name", d.Pyroscope.ApplicationName)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Transport.PubSub == types.KafkaPubSub && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when transport.pubsub is %s", types.KafkaPubSub)
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for tests and for running without a config file
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "contractflow",
			Password:               "contractflow",
			DBName:                 "contractflow",
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 60,
			ConnectRetries:         5,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:29092"},
			ConsumerGroup: "contractflow-consumer",
			ClientID:      "contractflow",
		},
		Transport: TransportConfig{
			PubSub:          types.MemoryPubSub,
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			MaxElapsedTime:  time.Minute,
		},
		Routing: RoutingConfig{
			TryPayment:          "pay.tryPaymentContract",
			RegisterArrivalDate: "event.register.arrivalDate",
			Unregister:          "event.register.unregister",
			ActiveContract:      "contract.active.contract",
			PaymentResult:       "contract.payment.contract",
			ArrivalDate:         "contract.event.arrivalDate",
			FSMCommand:          "contract.fsm.command",
			AccountRecharge:     "account.recharge",
		},
		Settlement: SettlementConfig{
			Enabled:       true,
			Schedule:      "*/30 * * * * *",
			Lookback:      24 * time.Hour,
			PageSize:      100,
			QueueCapacity: 10,
			Workers:       1,
			PublishRate:   50,
			PublishBurst:  10,
		},
		Sentry:    SentryConfig{SampleRate: 1.0},
		Pyroscope: PyroscopeConfig{ApplicationName: "contractflow"},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
