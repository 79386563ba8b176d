package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"slurm_usage/internal/report"
	"slurm_usage/internal/slurm"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

type Command string

const (
	CommandReport Command = "report"
	CommandDoctor Command = "doctor"
	CommandDryRun Command = "dry-run"
)

// EnvPrefix namespaces environment overrides, e.g. SLURM_USAGE_FORMAT=json.
const EnvPrefix = "SLURM_USAGE"

// ClassRule maps node names containing Match to Class. Rules are evaluated in
// file order.
type ClassRule struct {
	Match string `mapstructure:"match"`
	Class string `mapstructure:"class"`
}

type Config struct {
	Command        Command
	Mode           Mode
	Target         string
	ConfigFile     string
	Format         string
	Interactive    bool
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Retries        int
	SSHConfig      string
	IdentityFile   string
	Port           int
	NoColor        bool
	LogLevel       string
	Classes        []ClassRule
}

func defaultConfig() Config {
	return Config{
		Command:        CommandReport,
		Format:         report.FormatText,
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 30 * time.Second,
		Retries:        3,
		LogLevel:       "warn",
	}
}

// BindFlags declares every option on fs and binds it into v, so each flag can
// also be set through SLURM_USAGE_<FLAG> or the --config file.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := defaultConfig()

	fs.String("config", "", "optional YAML file with option values and node class rules")
	fs.String("format", d.Format, "report format: "+strings.Join(report.Formats, ", "))
	fs.Bool("interactive", false, "browse the report in a full-screen viewer instead of printing it")
	fs.Duration("connect-timeout", d.ConnectTimeout, "max SSH connection setup time per command (remote mode)")
	fs.Duration("command-timeout", d.CommandTimeout, "max runtime of each scheduler query")
	fs.Int("retries", d.Retries, "attempts per scheduler query when the failure looks transient")
	fs.String("ssh-config", "", "alternate OpenSSH config path (remote mode, supports Host aliases/ProxyJump)")
	fs.String("identity-file", "", "explicit SSH private key path passed to ssh -i (remote mode)")
	fs.Int("port", 0, "override SSH port for remote target (remote mode)")
	fs.Bool("no-color", false, "disable ANSI color in the status column")
	fs.String("log-level", d.LogLevel, "log level for diagnostics on stderr (debug, info, warn, error)")

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// Load resolves the final configuration for cmd from v (flags, environment,
// config file, defaults in that order) and the positional arguments.
func Load(v *viper.Viper, cmd Command, args []string) (Config, error) {
	cfg := defaultConfig()
	cfg.Command = cmd

	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	if len(args) > 1 {
		return Config{}, fmt.Errorf("expected zero or one positional target, got %d", len(args))
	}
	if len(args) == 1 {
		cfg.Target = strings.TrimSpace(args[0])
	}
	if cfg.Target == "" {
		cfg.Target = strings.TrimSpace(v.GetString("target"))
	}
	if cfg.Target == "" {
		cfg.Mode = ModeLocal
	} else {
		cfg.Mode = ModeRemote
	}

	cfg.Format = strings.ToLower(strings.TrimSpace(v.GetString("format")))
	cfg.Interactive = v.GetBool("interactive")
	cfg.ConnectTimeout = v.GetDuration("connect-timeout")
	cfg.CommandTimeout = v.GetDuration("command-timeout")
	cfg.Retries = v.GetInt("retries")
	cfg.SSHConfig = v.GetString("ssh-config")
	cfg.IdentityFile = v.GetString("identity-file")
	cfg.Port = v.GetInt("port")
	cfg.NoColor = v.GetBool("no-color")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString("log-level")))
	if err := v.UnmarshalKey("classes", &cfg.Classes); err != nil {
		return Config{}, fmt.Errorf("decode classes: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if !contains(report.Formats, cfg.Format) {
		return fmt.Errorf("--format must be one of %s", strings.Join(report.Formats, ", "))
	}
	if cfg.Interactive && cfg.Format != report.FormatText {
		return fmt.Errorf("--interactive only supports the text format")
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("--connect-timeout must be > 0")
	}
	if cfg.CommandTimeout <= 0 {
		return fmt.Errorf("--command-timeout must be > 0")
	}
	if cfg.Retries < 1 {
		return fmt.Errorf("--retries must be >= 1")
	}
	if cfg.Port < 0 {
		return fmt.Errorf("--port must be >= 0")
	}
	if cfg.Mode == ModeLocal {
		if cfg.SSHConfig != "" || cfg.IdentityFile != "" || cfg.Port != 0 {
			return fmt.Errorf("ssh-specific flags require a remote target")
		}
	}
	for i, rule := range cfg.Classes {
		if strings.TrimSpace(rule.Match) == "" {
			return fmt.Errorf("classes[%d]: match must not be empty", i)
		}
		if _, ok := slurm.ParseClass(rule.Class); !ok {
			return fmt.Errorf("classes[%d]: class %q must be one of lowmem, himem, interactive", i, rule.Class)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
