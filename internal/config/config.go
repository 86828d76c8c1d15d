package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Search    SearchConfig    `mapstructure:"search"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Counter   CounterConfig   `mapstructure:"counter"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	IndexSynced string `mapstructure:"index_synced"`
}

type SearchConfig struct {
	// typesense | memory
	Driver    string          `mapstructure:"driver"`
	Typesense TypesenseConfig `mapstructure:"typesense"`
}

type TypesenseConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Hosts             []string      `mapstructure:"hosts"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
}

// SyncConfig 索引同步任务配置，每种实体一份
type SyncConfig struct {
	Job           SyncTaskConfig `mapstructure:"job"`
	TechBlog      SyncTaskConfig `mapstructure:"tech_blog"`
	CommunityPost SyncTaskConfig `mapstructure:"community_post"`

	MaxRetry             int           `mapstructure:"max_retry"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	// PROCESSING 状态超过该时长视为上一轮已死亡，重新放回 WAIT
	ProcessingLease time.Duration `mapstructure:"processing_lease"`
}

type SyncTaskConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
	// 为空表示处理全部更新类型
	UpdateTypes []string `mapstructure:"update_types"`
}

type CounterConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	FlushTimeout  time.Duration `mapstructure:"flush_timeout"`
}

type SchedulerConfig struct {
	// 多实例部署时开启，使用 Redis 锁保证同一任务全局只跑一份
	DistributedLock bool          `mapstructure:"distributed_lock"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.WorkerID == 0 {
		c.Server.WorkerID = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Search.Driver == "" {
		c.Search.Driver = "typesense"
	}
	if c.Search.Typesense.ConnectionTimeout == 0 {
		c.Search.Typesense.ConnectionTimeout = 5 * time.Second
	}
	if c.Kafka.Topic.IndexSynced == "" {
		c.Kafka.Topic.IndexSynced = "search.index.synced"
	}

	for _, t := range []*SyncTaskConfig{&c.Sync.Job, &c.Sync.TechBlog, &c.Sync.CommunityPost} {
		if t.Interval == 0 {
			t.Interval = 3 * time.Second
		}
		if t.Timeout == 0 {
			t.Timeout = 30 * time.Second
		}
		if t.BatchSize == 0 {
			t.BatchSize = 100
		}
	}
	if c.Sync.MaxRetry == 0 {
		c.Sync.MaxRetry = 5
	}
	if c.Sync.RetryInitialInterval == 0 {
		c.Sync.RetryInitialInterval = 2 * time.Second
	}
	if c.Sync.RetryMaxInterval == 0 {
		c.Sync.RetryMaxInterval = 5 * time.Minute
	}
	if c.Sync.ProcessingLease == 0 {
		c.Sync.ProcessingLease = 2 * time.Minute
	}

	if c.Counter.FlushInterval == 0 {
		c.Counter.FlushInterval = 10 * time.Second
	}
	if c.Counter.FlushTimeout == 0 {
		c.Counter.FlushTimeout = 30 * time.Second
	}
	if c.Scheduler.LockTTL == 0 {
		c.Scheduler.LockTTL = time.Minute
	}
}

func (c *Config) validate() error {
	switch c.Search.Driver {
	case "typesense":
		if len(c.Search.Typesense.Hosts) == 0 {
			return fmt.Errorf("search.typesense.hosts 不能为空")
		}
	case "memory":
	default:
		return fmt.Errorf("不支持的 search.driver: %s", c.Search.Driver)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.enabled 为 true 时 kafka.brokers 不能为空")
	}
	if c.Sync.ProcessingLease <= c.Sync.Job.Timeout ||
		c.Sync.ProcessingLease <= c.Sync.TechBlog.Timeout ||
		c.Sync.ProcessingLease <= c.Sync.CommunityPost.Timeout {
		return fmt.Errorf("sync.processing_lease 必须大于各同步任务的 timeout")
	}
	return nil
}
