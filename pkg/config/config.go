package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/moyu-x/dataset-dedup/internal"
)

type Config struct {
	Dataset struct {
		TrainDir   string   `mapstructure:"train_dir"`
		TestDir    string   `mapstructure:"test_dir"`
		Categories []string `mapstructure:"categories"`
		Extensions []string `mapstructure:"extensions"`
	} `mapstructure:"dataset"`
	Hashing struct {
		Algorithm string `mapstructure:"algorithm"`
		PreFilter bool   `mapstructure:"prefilter"`
	} `mapstructure:"hashing"`
	Performance struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"performance"`
	Cache struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"cache"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// Load 读取配置文件，cfgFile 为空时按默认路径搜索 config.yaml
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.dataset-dedup")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dataset-dedup")
	}

	v.SetEnvPrefix("DATASET_DEDUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset.train_dir", "")
	v.SetDefault("dataset.test_dir", "")
	v.SetDefault("dataset.categories", internal.DefaultCategories)
	v.SetDefault("dataset.extensions", internal.DefaultExtensions)
	v.SetDefault("hashing.algorithm", internal.DefaultAlgorithm)
	v.SetDefault("hashing.prefilter", true)
	v.SetDefault("performance.workers", internal.DefaultWorkers)
	v.SetDefault("cache.path", "")
	v.SetDefault("database.path", internal.DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}
