package core

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env  string `yaml:"env" env:"ENV" env-default:"local"`
	HTTP struct {
		Listen      string `yaml:"listen" env:"HTTP_LISTEN" env-default:":5000"`
		FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:5174"`
		UserHeader  string `yaml:"user_header" env:"HTTP_USER_HEADER" env-default:"X-User-ID"`
		AuthToken   string `yaml:"auth_token" env:"HTTP_AUTH_TOKEN" env-default:""`
	} `yaml:"http"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		URI      string `yaml:"uri" env:"MONGO_URI" env-default:""`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"kirana"`
	} `yaml:"mongo"`
	Chat struct {
		// MaxTurns caps the stored transcript; 0 keeps everything.
		MaxTurns int `yaml:"max_turns" env:"CHAT_MAX_TURNS" env-default:"0"`
	} `yaml:"chat"`
	Catalog struct {
		StoreId string `yaml:"store_id" env:"CATALOG_STORE_ID" env-default:""`
	} `yaml:"catalog"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
		ApiKey   string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		Username string `yaml:"username" env:"TELEGRAM_USERNAME" env-default:""`
	} `yaml:"telegram"`
}

// MongoURI returns the configured connection string, composing one from
// host credentials when no explicit uri is set.
func (c *Config) MongoURI() string {
	if c.Mongo.URI != "" {
		return c.Mongo.URI
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s",
		c.Mongo.User, c.Mongo.Password,
		c.Mongo.Host, c.Mongo.Port)
}

func (c *Config) validate() error {
	if c.HTTP.Listen == "" {
		return errors.New("http.listen cannot be empty")
	}
	if c.HTTP.UserHeader == "" {
		return errors.New("http.user_header cannot be empty")
	}
	if c.Chat.MaxTurns < 0 || c.Chat.MaxTurns == 1 {
		return errors.New("chat.max_turns must be 0 or at least 2")
	}
	if c.Telegram.Enabled && c.Telegram.ApiKey == "" {
		return errors.New("telegram.api_key is required when telegram is enabled")
	}
	return nil
}

// Load reads the yaml file at path, overlaid with environment variables.
// A missing file is not an error: the configuration then comes from the
// environment alone.
func Load(path string) (*Config, error) {
	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if err = conf.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

var instance *Config
var once sync.Once

// MustLoad loads the configuration once per process and panics on failure.
func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			panic(err)
		}
		instance = conf
	})
	return instance
}
