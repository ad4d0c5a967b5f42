package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mgit/pkg/storage"
	"mgit/pkg/types"

	"github.com/spf13/viper"
)

const envPrefix = "MGIT"

// Settings is a typed snapshot of the merged configuration.
type Settings struct {
	Repo     RepoSettings     `mapstructure:"repo"`
	Storage  StorageSettings  `mapstructure:"storage"`
	Cache    CacheSettings    `mapstructure:"cache"`
	Database DatabaseSettings `mapstructure:"database"`
	User     UserSettings     `mapstructure:"user"`
	Build    BuildSettings    `mapstructure:"build"`
	Log      LogSettings      `mapstructure:"log"`
}

type RepoSettings struct {
	Path string `mapstructure:"path"` // working tree root
}

type StorageSettings struct {
	Type        string     `mapstructure:"type"` // disk | s3
	Path        string     `mapstructure:"path"` // objects dir for disk
	WritePolicy string     `mapstructure:"write_policy"`
	S3          S3Settings `mapstructure:"s3"`
}

type S3Settings struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type CacheSettings struct {
	RedisURL string        `mapstructure:"redis_url"` // empty disables the cache
	TTL      time.Duration `mapstructure:"ttl"`
}

type DatabaseSettings struct {
	Driver   string `mapstructure:"driver"` // sqlite | postgres
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type UserSettings struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

type BuildSettings struct {
	Concurrency int  `mapstructure:"concurrency"`
	StatCache   bool `mapstructure:"stat_cache"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

// MetaDir is the repository metadata directory inside the working tree.
func (s *Settings) MetaDir() string {
	return filepath.Join(s.Repo.Path, types.MetaDir)
}

// Load initializes viper: defaults, then the config file, then MGIT_*
// environment variables. cfgFile overrides the search path when set.
func Load(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(types.MetaDir)
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, types.MetaDir))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// MGIT_STORAGE_PATH -> storage.path
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("repo.path", ".")

	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", "")
	viper.SetDefault("storage.write_policy", string(storage.PolicySkip))
	viper.SetDefault("storage.s3.endpoint", "")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.bucket", "")
	viper.SetDefault("storage.s3.access_key", "")
	viper.SetDefault("storage.s3.secret_key", "")

	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "mgit")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("user.name", "mgit")
	viper.SetDefault("user.email", "mgit@localhost")

	viper.SetDefault("build.concurrency", 1)
	viper.SetDefault("build.stat_cache", true)

	viper.SetDefault("log.level", "info")
}

// Current returns the merged settings with derived paths filled in:
// storage.path defaults to <repo>/.mgit/objects, database.path to
// <repo>/.mgit/meta.db.
func Current() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	repo, err := filepath.Abs(s.Repo.Path)
	if err != nil {
		return nil, err
	}
	s.Repo.Path = repo

	if s.Storage.Path == "" {
		s.Storage.Path = filepath.Join(s.MetaDir(), "objects")
	}
	if s.Database.Path == "" {
		s.Database.Path = filepath.Join(s.MetaDir(), "meta.db")
	}

	if _, err := storage.ParseWritePolicy(s.Storage.WritePolicy); err != nil {
		return nil, err
	}
	switch s.Storage.Type {
	case "disk", "s3":
	default:
		return nil, fmt.Errorf("unknown storage type %q (want disk or s3)", s.Storage.Type)
	}
	return &s, nil
}
