package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port      string        `mapstructure:"port" yaml:"port"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	APIPrefix string        `mapstructure:"apiPrefix" yaml:"apiPrefix"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// StorageConfig 描述工作目录。生成的报告直接放在 WorkDir 下，
// 每个请求的临时图片放在 StagingDir/<uuid> 下。
type StorageConfig struct {
	WorkDir         string        `mapstructure:"workDir" yaml:"workDir"`
	StagingDir      string        `mapstructure:"stagingDir" yaml:"stagingDir"`
	MaxUploadMB     int64         `mapstructure:"maxUploadMB" yaml:"maxUploadMB"`
	StaleWorkspace  time.Duration `mapstructure:"staleWorkspace" yaml:"staleWorkspace"`
	JanitorInterval time.Duration `mapstructure:"janitorInterval" yaml:"janitorInterval"`
}

type ReportConfig struct {
	Heading            string `mapstructure:"heading" yaml:"heading"`
	ImageWidthEMU      int64  `mapstructure:"imageWidthEMU" yaml:"imageWidthEMU"`
	ImagesPerPage      int    `mapstructure:"imagesPerPage" yaml:"imagesPerPage"`
	IncludeDescription bool   `mapstructure:"includeDescription" yaml:"includeDescription"`
	DecodeWorkers      int    `mapstructure:"decodeWorkers" yaml:"decodeWorkers"`
}

type MetadataDefaults struct {
	Title            string `mapstructure:"title" yaml:"title"`
	Description      string `mapstructure:"description" yaml:"description"`
	ShootingLocation string `mapstructure:"shootingLocation" yaml:"shootingLocation"`
	Photographer     string `mapstructure:"photographer" yaml:"photographer"`
}

type Config struct {
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	CORS     CORSConfig    `mapstructure:"cors" yaml:"cors"`
	Logger   LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Storage  StorageConfig `mapstructure:"storage" yaml:"storage"`
	Report   ReportConfig  `mapstructure:"report" yaml:"report"`
	Metadata struct {
		Defaults MetadataDefaults `mapstructure:"defaults" yaml:"defaults"`
	} `mapstructure:"metadata" yaml:"metadata"`
}

var C *Config

// Default 返回内置默认配置，与 config.yaml 缺省时 LoadConfig 的结果一致。
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// 只有默认值，Unmarshal 不会失败
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.timeout", 2*time.Minute)
	v.SetDefault("server.apiPrefix", "/api")

	v.SetDefault("cors.allowedOrigins", []string{"http://localhost:4200"})

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.path", "")
	v.SetDefault("logger.maxSizeMB", 100)
	v.SetDefault("logger.maxBackups", 3)
	v.SetDefault("logger.maxAgeDays", 7)
	v.SetDefault("logger.compress", false)

	v.SetDefault("storage.workDir", "uploads")
	v.SetDefault("storage.stagingDir", "")
	v.SetDefault("storage.maxUploadMB", 64)
	v.SetDefault("storage.staleWorkspace", time.Hour)
	v.SetDefault("storage.janitorInterval", 10*time.Minute)

	v.SetDefault("report.heading", "Image Report")
	v.SetDefault("report.imageWidthEMU", 5000000)
	v.SetDefault("report.imagesPerPage", 2)
	v.SetDefault("report.includeDescription", false)
	v.SetDefault("report.decodeWorkers", 0)

	v.SetDefault("metadata.defaults.title", "Untitled")
	v.SetDefault("metadata.defaults.description", "No description provided")
	v.SetDefault("metadata.defaults.shootingLocation", "Taiwan")
	v.SetDefault("metadata.defaults.photographer", "None")
}

// LoadConfig 从 path 目录读取 config.yaml；文件不存在时只使用默认值和环境变量。
// 环境变量形如 REPORT_STORAGE_WORKDIR。
func LoadConfig(path string) error {
	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	C = &cfg
	return nil
}

// StagingPath 返回请求工作区的根目录，未配置时位于工作目录下的 .staging。
func (c *Config) StagingPath() string {
	if c.Storage.StagingDir != "" {
		return c.Storage.StagingDir
	}
	return filepath.Join(c.Storage.WorkDir, ".staging")
}

// WriteDefault 把默认配置写成 YAML，供 cli init-config 使用。
func WriteDefault(file string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}
