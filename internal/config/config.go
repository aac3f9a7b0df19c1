package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
}

const _sweepIntervalDefault = 2 * time.Minute

func (c *SweepConfig) Setup() {
	if c.Interval <= 0 {
		c.Interval = _sweepIntervalDefault
	}
}

type PriceFeedConfig struct {
	Address        string        `yaml:"address"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestsPerMin int           `yaml:"requests_per_min"`
	QuoteCurrency  string        `yaml:"quote_currency"`
}

const (
	_pollIntervalDefault   = 1 * time.Minute
	_requestsPerMinDefault = 50
	_quoteCurrencyDefault  = "usd"
)

func (c *PriceFeedConfig) Setup() error {
	if c.Address == "" {
		return fmt.Errorf("price feed address is required")
	}
	if _, err := url.Parse(c.Address); err != nil {
		return err
	}

	if c.PollInterval <= 0 {
		c.PollInterval = _pollIntervalDefault
	}
	if c.RequestsPerMin <= 0 {
		c.RequestsPerMin = _requestsPerMinDefault
	}
	if c.QuoteCurrency == "" {
		c.QuoteCurrency = _quoteCurrencyDefault
	}

	return nil
}

type NotifierConfig struct {
	WebhookURL string        `yaml:"webhook_url"` // empty means log-only delivery
	Timeout    time.Duration `yaml:"timeout"`
}

const _notifyTimeoutDefault = 10 * time.Second

func (c *NotifierConfig) Setup() {
	if c.Timeout <= 0 {
		c.Timeout = _notifyTimeoutDefault
	}
}

type ServiceConfig struct {
	HTTPPort  string          `yaml:"http_port"`
	LogLevel  string          `yaml:"log_level"`
	Sweep     SweepConfig     `yaml:"sweep"`
	PriceFeed PriceFeedConfig `yaml:"price_feed"`
	Notifier  NotifierConfig  `yaml:"notifier"`
}

const _httpPortDefault = "8080"

func (c *ServiceConfig) ValidateAndSetup() error {
	if c.HTTPPort == "" {
		c.HTTPPort = _httpPortDefault
	}

	c.Sweep.Setup()
	c.Notifier.Setup()

	if err := c.PriceFeed.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup price feed", err)
	}

	return nil
}

func LoadServiceConfig(filename string) (ServiceConfig, error) {
	var cfg ServiceConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
