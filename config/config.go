package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения: PLANT_MONITOR_SCAN_SCHEDULE и т.п.
const EnvPrefix = "PLANT_MONITOR"

// Бэкенды детектора
const (
	BackendTFLite = "tflite"
	BackendExec   = "exec"
	BackendGoCV   = "gocv"
)

type Config struct {
	Firebase   FirebaseConfig   `mapstructure:"firebase"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

type FirebaseConfig struct {
	DatabaseURL     string `mapstructure:"database_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// StoreConfig in-memory хранилище вместо Firebase для локального запуска
type StoreConfig struct {
	DryRun   bool   `mapstructure:"dry_run"`
	SeedFile string `mapstructure:"seed_file"`
}

// DatabaseConfig пути в базе
type DatabaseConfig struct {
	PlantsPath    string `mapstructure:"plants_path"`
	TriggerPath   string `mapstructure:"trigger_path"`
	DiseasesPath  string `mapstructure:"diseases_path"`
	CameraFeedKey string `mapstructure:"camera_feed_key"`
}

type ScanConfig struct {
	SensorNodes    []string      `mapstructure:"sensor_nodes"`
	UnhealthyLabel string        `mapstructure:"unhealthy_label"`
	Schedule       string        `mapstructure:"schedule"`
	RunOnStart     bool          `mapstructure:"run_on_start"`
	TriggerPoll    time.Duration `mapstructure:"trigger_poll"`
	QueueCapacity  int           `mapstructure:"queue_capacity"`
	WriteRetries   int           `mapstructure:"write_retries"`
}

type DetectorConfig struct {
	Backend       string   `mapstructure:"backend"`
	ModelPath     string   `mapstructure:"model_path"`
	Labels        []string `mapstructure:"labels"`
	InputSize     int      `mapstructure:"input_size"`
	Threads       int      `mapstructure:"threads"`
	ConfThreshold float64  `mapstructure:"conf_threshold"`
	IoUThreshold  float64  `mapstructure:"iou_threshold"`
	Command       string   `mapstructure:"command"`
	Args          []string `mapstructure:"args"`
	ScratchDir    string   `mapstructure:"scratch_dir"`
}

type ClassifierConfig struct {
	ModelPath string    `mapstructure:"model_path"`
	Threads   int       `mapstructure:"threads"`
	Mean      []float64 `mapstructure:"mean"`
	Std       []float64 `mapstructure:"std"`
}

type MQTTConfig struct {
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"client_id"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	Retain      bool          `mapstructure:"retain"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagBindings флаги командной строки → ключи конфигурации
var flagBindings = map[string]string{
	"dry-run":   "store.dry_run",
	"seed":      "store.seed_file",
	"log-level": "log.level",
	"listen":    "metrics.listen",
	"schedule":  "scan.schedule",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("firebase.database_url", "")
	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("store.dry_run", false)
	v.SetDefault("store.seed_file", "")

	v.SetDefault("database.plants_path", "plants")
	v.SetDefault("database.trigger_path", "ai_monitoring/trigger")
	v.SetDefault("database.diseases_path", "plant_diseases")
	v.SetDefault("database.camera_feed_key", "ESP32CAM")

	v.SetDefault("scan.sensor_nodes", []string{"JSON", "JSON2", "JSON3"})
	v.SetDefault("scan.unhealthy_label", "unhealthy")
	v.SetDefault("scan.schedule", "30m")
	v.SetDefault("scan.run_on_start", true)
	v.SetDefault("scan.trigger_poll", 2*time.Second)
	v.SetDefault("scan.queue_capacity", 16)
	v.SetDefault("scan.write_retries", 3)

	v.SetDefault("detector.backend", BackendTFLite)
	v.SetDefault("detector.model_path", "models/detector.tflite")
	v.SetDefault("detector.labels", []string{"healthy", "unhealthy"})
	v.SetDefault("detector.input_size", 640)
	v.SetDefault("detector.threads", 0)
	v.SetDefault("detector.conf_threshold", 0.25)
	v.SetDefault("detector.iou_threshold", 0.45)
	v.SetDefault("detector.command", "")
	v.SetDefault("detector.args", []string{})
	v.SetDefault("detector.scratch_dir", "")

	v.SetDefault("classifier.model_path", "models/classifier.tflite")
	v.SetDefault("classifier.threads", 0)
	v.SetDefault("classifier.mean", []float64{0.45596054, 0.4746459, 0.39278948})
	v.SetDefault("classifier.std", []float64{0.04770943, 0.05074333, 0.0420883})

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "plant-monitor")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "plant-monitor")
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("mqtt.timeout", 5*time.Second)

	v.SetDefault("telegram.token", "")
	v.SetDefault("metrics.listen", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load читает .env, переменные окружения, необязательный YAML-файл и флаги.
// Приоритет: флаги, окружение, файл, значения по умолчанию.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// TELEGRAM_TOKEN без префикса, как раньше
	if err := v.BindEnv("telegram.token", EnvPrefix+"_TELEGRAM_TOKEN", "TELEGRAM_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "bind telegram token")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// Validate проверяет то, что нужно любой команде
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !c.Store.DryRun && c.Firebase.DatabaseURL == "" {
		add("firebase.database_url is required unless store.dry_run is set")
	}
	if len(c.Scan.SensorNodes) == 0 {
		add("scan.sensor_nodes must not be empty")
	}
	if c.Scan.Schedule == "" {
		add("scan.schedule must not be empty")
	}
	if d, err := time.ParseDuration(c.Scan.Schedule); err == nil && d <= 0 {
		add("scan.schedule must be positive, got %s", d)
	}
	if c.Scan.TriggerPoll <= 0 {
		add("scan.trigger_poll must be positive")
	}
	if c.Scan.QueueCapacity <= 0 {
		add("scan.queue_capacity must be positive")
	}
	if c.Scan.WriteRetries < 0 {
		add("scan.write_retries must not be negative")
	}

	switch c.Detector.Backend {
	case BackendTFLite, BackendGoCV:
		if c.Detector.ModelPath == "" {
			add("detector.model_path is required for backend %s", c.Detector.Backend)
		}
	case BackendExec:
		if c.Detector.Command == "" {
			add("detector.command is required for backend exec")
		}
	default:
		add("unknown detector.backend %q", c.Detector.Backend)
	}

	if len(c.Classifier.Mean) != 3 || len(c.Classifier.Std) != 3 {
		add("classifier.mean and classifier.std need 3 values each")
	}
	for _, s := range c.Classifier.Std {
		if s <= 0 {
			add("classifier.std values must be positive")
			break
		}
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Normalization mean/std классификатора в виде массивов
func (c ClassifierConfig) Normalization() (mean, std [3]float32) {
	for i := 0; i < 3 && i < len(c.Mean); i++ {
		mean[i] = float32(c.Mean[i])
	}
	for i := 0; i < 3 && i < len(c.Std); i++ {
		std[i] = float32(c.Std[i])
	}
	return mean, std
}
