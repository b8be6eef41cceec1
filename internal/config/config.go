package config

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Ticket   TicketConfig   `mapstructure:"ticket"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// 票据绑定客户端地址，只有列出的代理可以通过 X-Forwarded-For 改写来源地址
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"dbname"`
	Charset   string `mapstructure:"charset"`
	ParseTime bool   `mapstructure:"parse_time"`
	Loc       string `mapstructure:"loc"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	Expiry     time.Duration `mapstructure:"expiry"`
	Codec      string        `mapstructure:"codec"` // json / cbor
	Secure     bool          `mapstructure:"secure"`
}

// TicketConfig 票据配置
type TicketConfig struct {
	LifetimeSeconds         int    `mapstructure:"lifetime_seconds"`
	ServiceLifetimeSeconds  int    `mapstructure:"service_lifetime_seconds"`
	RenewalThresholdSeconds int    `mapstructure:"renewal_threshold_seconds"`
	Realm                   string `mapstructure:"realm"`
	Secret                  string `mapstructure:"secret"`
	Digest                  string `mapstructure:"digest"` // sha256 / blake3
	RevokeOnRenew           bool   `mapstructure:"revoke_on_renew"`
}

// Lifetime TGT 有效期
func (t TicketConfig) Lifetime() time.Duration {
	return time.Duration(t.LifetimeSeconds) * time.Second
}

// ServiceLifetime Service Ticket 有效期
func (t TicketConfig) ServiceLifetime() time.Duration {
	return time.Duration(t.ServiceLifetimeSeconds) * time.Second
}

// RenewalThreshold 自动续期阈值
func (t TicketConfig) RenewalThreshold() time.Duration {
	return time.Duration(t.RenewalThresholdSeconds) * time.Second
}

// ErrTicketSecretEmpty 未配置票据密钥
var ErrTicketSecretEmpty = errors.New("ticket.secret 未配置")

var (
	current *Config
	mu      sync.RWMutex
)

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return unmarshal(v)
}

// LoadFromFile 从指定文件加载配置
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadWithFlags 加载配置，命令行参数优先
// --config 指定配置文件，其余已注册的 flag 按同名 key 覆盖
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	path, _ := flags.GetString("config")

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Get 获取最近一次加载的配置
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func unmarshal(v *viper.Viper) (*Config, error) {
	// 支持环境变量覆盖，如 VAULT_TICKET_SECRET
	v.SetEnvPrefix("vault")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	mu.Lock()
	current = &cfg
	mu.Unlock()

	return &cfg, nil
}

// Validate 校验启动所必需的配置
func (c *Config) Validate() error {
	if c.Ticket.Secret == "" {
		return ErrTicketSecretEmpty
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.user", "root")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.dbname", "credit_vault_db")
	v.SetDefault("database.mysql.charset", "utf8mb4")
	v.SetDefault("database.mysql.parse_time", true)
	v.SetDefault("database.mysql.loc", "Local")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.dbname", "credit_vault_db")
	v.SetDefault("database.postgres.sslmode", "disable")

	// Redis 默认配置
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 会话默认配置
	v.SetDefault("session.cookie_name", "vault_session")
	v.SetDefault("session.expiry", "30m")
	v.SetDefault("session.codec", "json")
	v.SetDefault("session.secure", false)

	// 票据默认配置
	v.SetDefault("ticket.lifetime_seconds", 1800)
	v.SetDefault("ticket.service_lifetime_seconds", 600)
	v.SetDefault("ticket.renewal_threshold_seconds", 300)
	v.SetDefault("ticket.realm", "CARDVAULT.LOCAL")
	v.SetDefault("ticket.secret", "")
	v.SetDefault("ticket.digest", "sha256")
	v.SetDefault("ticket.revoke_on_renew", false)
}
