package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"pricewatch_api/config/values"
)

type TelegramConfig struct {
	BotToken     string `yaml:"bot_token"`
	SuperAdminID int64  `yaml:"super_admin_id"`
}

type PricewatchConfig struct {
	Pricing  values.PricingValues  `yaml:"pricing"`
	Alerting values.AlertingValues `yaml:"alerting"`
	Catalogs values.CatalogValues  `yaml:"catalogs"`
	Schedule values.ScheduleValues `yaml:"schedule"`
}

type AppConfig struct {
	Pricewatch PricewatchConfig `yaml:"pricewatch"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ServerAddr string           `yaml:"server_addr"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

func (c *AppConfig) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8000"
	}
	if c.Telegram.BotToken == "" {
		c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	}
	if c.Postgres.Host == "" {
		c.Postgres = *GetPostgresConfig()
	}
	c.Pricewatch.Pricing.ApplyDefaults()
	c.Pricewatch.Alerting.ApplyDefaults()
	c.Pricewatch.Catalogs.ApplyDefaults()
	c.Pricewatch.Schedule.ApplyDefaults()
}
