package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
)

// Agent kinds understood by the runner.
const (
	KindHousehold  = "household"
	KindFirm       = "firm"
	KindGovernment = "government"
	KindBank       = "bank"
)

// AgentSpec describes one agent to create at start-up. Money fields are in
// major units ("125.50") and converted to pennies.
type AgentSpec struct {
	ID       string            `yaml:"id"`
	Kind     string            `yaml:"kind"`
	Cash     string            `yaml:"cash"`
	Heir     string            `yaml:"heir"`
	Deposits map[string]string `yaml:"deposits"` // bank id -> amount
}

// TransferSpec is a transfer repeated every tick.
type TransferSpec struct {
	Debit    string `yaml:"debit"`
	Credit   string `yaml:"credit"`
	Amount   string `yaml:"amount"`
	Memo     string `yaml:"memo"`
	Currency string `yaml:"currency"`
}

// MutationSpec is a supply change repeated every tick.
type MutationSpec struct {
	Agent  string `yaml:"agent"`
	Delta  string `yaml:"delta"`
	Reason string `yaml:"reason"`
}

// PayoutSpec is one cash entry of an exit plan.
type PayoutSpec struct {
	Recipient string `yaml:"recipient"`
	Amount    string `yaml:"amount"`
	Currency  string `yaml:"currency"`
	Memo      string `yaml:"memo"`
}

// ExitSpec removes an agent at a given tick.
type ExitSpec struct {
	Tick  int64        `yaml:"tick"`
	Agent string       `yaml:"agent"`
	Plan  []PayoutSpec `yaml:"plan"`
}

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level       string `yaml:"level"`
		Environment string `yaml:"environment"`
	} `yaml:"log"`
	Engine struct {
		MemoMaxLength int    `yaml:"memo_max_length"`
		GovernmentID  string `yaml:"government_id"`
		CallerGuard   bool   `yaml:"caller_guard"`
	} `yaml:"engine"`
	Schedule struct {
		TickCron  string `yaml:"tick_cron"`
		AuditCron string `yaml:"audit_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Proxy    string `yaml:"proxy"`
	} `yaml:"telegram"`
	Agents    []AgentSpec `yaml:"agents"`
	Recurring struct {
		Transfers []TransferSpec `yaml:"transfers"`
		Mutations []MutationSpec `yaml:"mutations"`
	} `yaml:"recurring"`
	Exits []ExitSpec `yaml:"exits"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SETTLEMENT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SETTLEMENT_LOG_ENV"); v != "" {
		cfg.Log.Environment = v
	}
	if v := os.Getenv("SETTLEMENT_TICK_CRON"); v != "" {
		cfg.Schedule.TickCron = v
	}
	if v := os.Getenv("SETTLEMENT_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && cfg.Telegram.Proxy == "" {
		cfg.Telegram.Proxy = v
	}

	// Defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Environment == "" {
		cfg.Log.Environment = string(logging.EnvironmentProduction)
	}
	if cfg.Engine.MemoMaxLength == 0 {
		cfg.Engine.MemoMaxLength = 255
	}
	if cfg.Engine.GovernmentID == "" {
		cfg.Engine.GovernmentID = string(model.GovernmentID)
	}
	if cfg.Schedule.TickCron == "" {
		cfg.Schedule.TickCron = "*/10 * * * * *"
	}
	if cfg.Schedule.AuditCron == "" {
		cfg.Schedule.AuditCron = "0 * * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/settlement.db"
	}

	return cfg, nil
}

// Validate checks that the economy described is consistent.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Engine.MemoMaxLength < 0 {
		return errors.New("engine.memo_max_length must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}

	kinds := make(map[string]string, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agents[%d].id is required", i)
		}
		if a.ID == string(model.CentralBankID) {
			return fmt.Errorf("agents[%d]: %s is created implicitly", i, model.CentralBankID)
		}
		if _, dup := kinds[a.ID]; dup {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID)
		}
		switch a.Kind {
		case KindHousehold, KindFirm, KindGovernment, KindBank:
		default:
			return fmt.Errorf("agents[%d].kind %q is not one of household, firm, government, bank", i, a.Kind)
		}
		if _, err := optionalPennies(a.Cash); err != nil {
			return fmt.Errorf("agents[%d].cash: %w", i, err)
		}
		kinds[a.ID] = a.Kind
	}
	for i, a := range c.Agents {
		for bank, amount := range a.Deposits {
			if kinds[bank] != KindBank {
				return fmt.Errorf("agents[%d].deposits: %q is not a bank", i, bank)
			}
			if _, err := model.PenniesFromMajor(amount); err != nil {
				return fmt.Errorf("agents[%d].deposits[%s]: %w", i, bank, err)
			}
		}
		if a.Heir != "" {
			if _, ok := kinds[a.Heir]; !ok {
				return fmt.Errorf("agents[%d].heir %q is not a configured agent", i, a.Heir)
			}
		}
	}

	for i, t := range c.Recurring.Transfers {
		if t.Debit == "" || t.Credit == "" {
			return fmt.Errorf("recurring.transfers[%d]: debit and credit are required", i)
		}
		if _, err := model.PenniesFromMajor(t.Amount); err != nil {
			return fmt.Errorf("recurring.transfers[%d].amount: %w", i, err)
		}
	}
	for i, m := range c.Recurring.Mutations {
		if m.Agent == "" {
			return fmt.Errorf("recurring.mutations[%d].agent is required", i)
		}
		if _, err := model.PenniesFromMajor(m.Delta); err != nil {
			return fmt.Errorf("recurring.mutations[%d].delta: %w", i, err)
		}
	}
	for i, x := range c.Exits {
		if _, ok := kinds[x.Agent]; !ok {
			return fmt.Errorf("exits[%d].agent %q is not a configured agent", i, x.Agent)
		}
		if x.Tick <= 0 {
			return fmt.Errorf("exits[%d].tick must be positive", i)
		}
		for j, p := range x.Plan {
			if _, err := model.PenniesFromMajor(p.Amount); err != nil {
				return fmt.Errorf("exits[%d].plan[%d].amount: %w", i, j, err)
			}
		}
	}
	return nil
}

// CashPennies returns the agent's opening cash in pennies.
func (a AgentSpec) CashPennies() int64 {
	p, _ := optionalPennies(a.Cash)
	return p
}

func optionalPennies(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return model.PenniesFromMajor(s)
}

// AlertsEnabled reports whether an operator chat is configured.
func (c *Config) AlertsEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
