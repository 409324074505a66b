// pkg/config/collect.go
//
// The input collector. Two sources: interactive terminal prompts with
// documented defaults, and a non-interactive path fed by flags, PANELCTL_*
// environment variables or a config file via viper. Both converge on the
// same validated InstallConfig.

package config

import (
	"fmt"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Source selects how the collector gathers input.
type Source int

const (
	Interactive Source = iota
	NonInteractive
)

// EnvPrefix namespaces the environment variables the collector reads,
// e.g. PANELCTL_DOMAIN, PANELCTL_DB_PASSWORD.
const EnvPrefix = "PANELCTL"

// NewViper returns a viper instance bound to the collector's environment
// namespace. Commands bind their flags onto it before collection.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Collect gathers and validates an InstallConfig. A generated DB password is
// never echoed back; it only appears in the persisted environment artifact.
func Collect(rc *panel_io.RuntimeContext, source Source, v *viper.Viper) (*InstallConfig, error) {
	logger := otelzap.Ctx(rc.Ctx)

	var cfg *InstallConfig
	var err error

	switch source {
	case Interactive:
		cfg, err = collectInteractive(rc, v)
	case NonInteractive:
		cfg, err = collectNonInteractive(rc, v)
	default:
		return nil, panel_err.NewValidationError("source", "unknown collection source")
	}
	if err != nil {
		return nil, err
	}

	if cfg.DBPassword == "" {
		password, err := GeneratePassword()
		if err != nil {
			return nil, err
		}
		cfg.DBPassword = password
		logger.Info("Generated database password", zap.Int("length", len(password)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Install configuration collected")
	for k, val := range cfg.Redacted() {
		logger.Debug("config value", zap.String(k, val))
	}
	return cfg, nil
}

func collectNonInteractive(rc *panel_io.RuntimeContext, v *viper.Viper) (*InstallConfig, error) {
	setDefaults(v)

	engine, err := ParseEngine(v.GetString("db_engine"))
	if err != nil {
		return nil, err
	}

	cfg := &InstallConfig{
		Domain:            v.GetString("domain"),
		AdminEmail:        v.GetString("ssl_email"),
		DBEngine:          engine,
		DBHost:            v.GetString("db_host"),
		DBPort:            v.GetInt("db_port"),
		DBName:            v.GetString("db_name"),
		DBUser:            v.GetString("db_user"),
		DBPassword:        v.GetString("db_password"),
		MySQLRootPassword: v.GetString("mysql_root_password"),
	}

	if cfg.Domain == "" {
		return nil, panel_err.NewValidationError("domain", "cannot be empty")
	}
	return cfg, nil
}

func collectInteractive(rc *panel_io.RuntimeContext, v *viper.Viper) (*InstallConfig, error) {
	setDefaults(v)

	domain, err := panel_io.PromptInput(rc, "Panel domain (e.g. panel.example.com)", "domain", v.GetString("domain"))
	if err != nil {
		return nil, err
	}
	if domain == "" {
		return nil, panel_err.NewValidationError("domain", "cannot be empty")
	}

	email, err := panel_io.PromptInput(rc, "Email for TLS certificate (empty to skip HTTPS)", "ssl_email", v.GetString("ssl_email"))
	if err != nil {
		return nil, err
	}

	engineRaw, err := panel_io.PromptInput(rc, "Database engine (mariadb/mysql)", "db_engine", v.GetString("db_engine"))
	if err != nil {
		return nil, err
	}
	engine, err := ParseEngine(engineRaw)
	if err != nil {
		return nil, err
	}

	host, err := panel_io.PromptInput(rc, "Database host", "db_host", v.GetString("db_host"))
	if err != nil {
		return nil, err
	}

	portRaw, err := panel_io.PromptInput(rc, "Database port", "db_port", v.GetString("db_port"))
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return nil, panel_err.NewValidationError("db-port", fmt.Sprintf("%q is not a number", portRaw))
	}

	name, err := panel_io.PromptInput(rc, "Database name", "db_name", v.GetString("db_name"))
	if err != nil {
		return nil, err
	}

	user, err := panel_io.PromptInput(rc, "Database user", "db_user", v.GetString("db_user"))
	if err != nil {
		return nil, err
	}

	password, err := panel_io.PromptSecurePassword(rc, "Database password (empty to generate)")
	if err != nil {
		return nil, err
	}

	rootPassword, err := panel_io.PromptSecurePassword(rc, "MySQL root password (empty for socket auth)")
	if err != nil {
		return nil, err
	}

	return &InstallConfig{
		Domain:            domain,
		AdminEmail:        email,
		DBEngine:          engine,
		DBHost:            host,
		DBPort:            port,
		DBName:            name,
		DBUser:            user,
		DBPassword:        password,
		MySQLRootPassword: rootPassword,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_engine", string(DefaultDBEngine))
	v.SetDefault("db_host", DefaultDBHost)
	v.SetDefault("db_port", DefaultDBPort)
	v.SetDefault("db_name", DefaultDBName)
	v.SetDefault("db_user", DefaultDBUser)
}

// ConfirmSummary shows the collected configuration and asks the operator to
// proceed. Secrets are not displayed.
func ConfirmSummary(rc *panel_io.RuntimeContext, cfg *InstallConfig, assumeYes bool) error {
	if assumeYes {
		return nil
	}

	fmt.Println()
	fmt.Println("About to provision with:")
	fmt.Printf("  Domain:       %s\n", cfg.Domain)
	fmt.Printf("  App URL:      %s\n", cfg.AppURL())
	fmt.Printf("  DB engine:    %s\n", cfg.DBEngine)
	fmt.Printf("  DB host:      %s:%d\n", cfg.DBHost, cfg.DBPort)
	fmt.Printf("  DB name/user: %s / %s\n", cfg.DBName, cfg.DBUser)
	if cfg.CertificateEligible() {
		fmt.Printf("  TLS:          certbot for %s (%s)\n", cfg.Domain, cfg.AdminEmail)
	} else {
		fmt.Println("  TLS:          skipped (local domain or no email)")
	}
	fmt.Println()

	proceed, err := panel_io.PromptYesNo(rc, "Proceed with installation?", true)
	if err != nil {
		return err
	}
	if !proceed {
		return panel_err.NewConfirmationDeclined("install")
	}
	return nil
}
