package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

type SystemConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// StorageConfig selects and tunes the asset storage backend.
type StorageConfig struct {
	// Backend is one of "filesystem" or "bolt".
	Backend string `yaml:"backend" json:"backend"`
	// Root is the directory (filesystem) or database file (bolt) assets live in.
	Root string `yaml:"root" json:"root"`
	// MaxImageSize is the upload ceiling for preview images, in bytes.
	MaxImageSize int64 `yaml:"max_image_size" json:"max_image_size"`
}

type AppConfig struct {
	System   SystemConfig  `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LoggerConfig  `yaml:"logger" json:"logger"`
	Storage  StorageConfig `yaml:"storage" json:"storage"`
}

var DefaultAppConfig = &AppConfig{
	System: SystemConfig{
		Appid:    "storekit",
		Location: "Asia/Taipei",
		Workdir:  "/var/storekit",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1816,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "storekit",
		User:     "postgres",
		Passwd:   "root",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LoggerConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/storekit/storekit.log",
	},
	Storage: StorageConfig{
		Backend:      "filesystem",
		Root:         "/var/storekit/assets",
		MaxImageSize: 5 << 20,
	},
}

// LoadConfig reads a yaml config file, falling back to defaults when the
// path is empty or unreadable. Environment overrides apply on every path.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			loaded := new(AppConfig)
			if err := yaml.Unmarshal(data, loaded); err == nil {
				cfg = loaded
			}
		}
	}
	setEnvDefaults(cfg)
	return cfg
}

func setEnvDefaults(cfg *AppConfig) {
	if v := os.Getenv("STOREKIT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("STOREKIT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("STOREKIT_DB_PWD"); v != "" {
		cfg.Database.Passwd = v
	}
	if v := os.Getenv("STOREKIT_WORKDIR"); v != "" {
		cfg.System.Workdir = v
	}
	if cfg.Storage.MaxImageSize <= 0 {
		cfg.Storage.MaxImageSize = DefaultAppConfig.Storage.MaxImageSize
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultAppConfig.Storage.Backend
	}
}
