package main

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Everything has a sane default; chat
// notifications stay disabled until a bot token is configured.
type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`

	SlackBotToken           string `yaml:"slack_bot_token"`
	GeneralChannelID        string `yaml:"general_channel_id"`
	ReconciliationChannelID string `yaml:"reconciliation_channel_id"`

	// PayrollTablePath layers extra calendar years over the embedded table.
	PayrollTablePath string `yaml:"payroll_table_path"`

	// AgentRosterPath is a YAML roster exported from the identity provider;
	// when set, startup mirrors its agents into agent_profiles.
	AgentRosterPath string `yaml:"agent_roster_path"`

	// TrimSchedule is a cron spec for the nightly contact-log trim.
	TrimSchedule string `yaml:"trim_schedule"`
}

// LoadConfig reads config.yaml (or $CONFIG_PATH) and applies env overrides.
func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.GeneralChannelID, "GENERAL_CHANNEL_ID")
	envOverride(&cfg.ReconciliationChannelID, "RECONCILIATION_CHANNEL_ID")
	envOverride(&cfg.PayrollTablePath, "PAYROLL_TABLE_PATH")
	envOverride(&cfg.AgentRosterPath, "AGENT_ROSTER_PATH")
	envOverride(&cfg.TrimSchedule, "TRIM_SCHEDULE")
	envOverrideInt(&cfg.Port, "PORT")

	// Defaults
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "commission.db"
	}
	if cfg.TrimSchedule == "" {
		cfg.TrimSchedule = "0 3 * * *"
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
