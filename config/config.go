package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Push struct {
		GatewayURL string `yaml:"gateway_url"`
		ChunkSize  int    `yaml:"chunk_size"`
	} `yaml:"push"`

	Reminders struct {
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
		DefaultLeadSeconds   int `yaml:"default_lead_seconds"`
	} `yaml:"reminders"`

	Assistant struct {
		Name             string `yaml:"name"`
		ReplyDelayMillis int    `yaml:"reply_delay_millis"`
		ReplyText        string `yaml:"reply_text"`
	} `yaml:"assistant"`
}

// Load reads the YAML config at path, substituting ${VAR} placeholders
// from the environment. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		placeholder := "${" + pair[0] + "}"
		content = strings.ReplaceAll(content, placeholder, pair[1])
	}

	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.fillZeroes()
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Database.Path = "./planora.db"
	cfg.Push.GatewayURL = "https://exp.host/--/api/v2/push/send"
	cfg.Push.ChunkSize = 100
	cfg.Reminders.SweepIntervalSeconds = 60
	cfg.Reminders.DefaultLeadSeconds = 600
	cfg.Assistant.Name = "Planora Assistant"
	cfg.Assistant.ReplyDelayMillis = 1500
	cfg.Assistant.ReplyText = "Thanks for your message! I'm looking into it and will get back to you shortly."
	return cfg
}

// fillZeroes restores defaults for fields the file set to zero values,
// so a partial config.yaml doesn't disable the sweeper or the gateway.
func (c *Config) fillZeroes() {
	d := defaults()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Push.GatewayURL == "" {
		c.Push.GatewayURL = d.Push.GatewayURL
	}
	if c.Push.ChunkSize <= 0 {
		c.Push.ChunkSize = d.Push.ChunkSize
	}
	if c.Reminders.SweepIntervalSeconds <= 0 {
		c.Reminders.SweepIntervalSeconds = d.Reminders.SweepIntervalSeconds
	}
	if c.Reminders.DefaultLeadSeconds <= 0 {
		c.Reminders.DefaultLeadSeconds = d.Reminders.DefaultLeadSeconds
	}
	if c.Assistant.Name == "" {
		c.Assistant.Name = d.Assistant.Name
	}
	if c.Assistant.ReplyDelayMillis <= 0 {
		c.Assistant.ReplyDelayMillis = d.Assistant.ReplyDelayMillis
	}
	if c.Assistant.ReplyText == "" {
		c.Assistant.ReplyText = d.Assistant.ReplyText
	}
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Reminders.SweepIntervalSeconds) * time.Second
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.Reminders.DefaultLeadSeconds) * time.Second
}

func (c *Config) AssistantReplyDelay() time.Duration {
	return time.Duration(c.Assistant.ReplyDelayMillis) * time.Millisecond
}
