// Package config loads runtime configuration from the environment and an
// optional .env file, exposing a typed Config through fx.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type BillingConfig struct {
	// Currency is the single wallet currency for the deployment.
	Currency string `mapstructure:"currency"`

	// SuspendOnNegative flags (not blocks) accounts whose balance went
	// negative after a debit. Blocking is an admission-layer concern.
	SuspendOnNegative bool `mapstructure:"suspend_on_negative"`

	// InvoiceDueDays is added to the issue date to form the due date.
	InvoiceDueDays int `mapstructure:"invoice_due_days"`
}

type SchedulerConfig struct {
	OverdueSweepInterval time.Duration `mapstructure:"overdue_sweep_interval"`

	// UsageRetentionDays drops rated usage older than this many days once it
	// has been invoiced. Zero disables the purge.
	UsageRetentionDays int `mapstructure:"usage_retention_days"`

	// MonthlyInvoicing generates an invoice for the previous calendar month
	// for every active account. Accounts already invoiced for the period are
	// skipped, so the job can run on every tick.
	MonthlyInvoicing bool `mapstructure:"monthly_invoicing"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VOXBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "voxbill.db")
	v.SetDefault("billing.currency", "USD")
	v.SetDefault("billing.suspend_on_negative", true)
	v.SetDefault("billing.invoice_due_days", 30)
	v.SetDefault("scheduler.overdue_sweep_interval", time.Hour)
	v.SetDefault("scheduler.usage_retention_days", 0)
	v.SetDefault("scheduler.monthly_invoicing", false)
	v.SetDefault("log.level", "info")

	v.SetConfigName("voxbill")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/voxbill")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
