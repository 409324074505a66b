// pkg/config/config.go

package config

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/go-playground/validator/v10"
)

// Engine selects the database server flavour.
type Engine string

const (
	EngineMariaDB Engine = "mariadb"
	EngineMySQL   Engine = "mysql"
)

// ParseEngine normalizes an engine name.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mariadb":
		return EngineMariaDB, nil
	case "mysql":
		return EngineMySQL, nil
	default:
		return "", panel_err.NewValidationError("db-engine",
			fmt.Sprintf("%q is not a recognized engine (mariadb or mysql)", s))
	}
}

// Documented defaults for every optional field.
const (
	DefaultDBEngine = EngineMariaDB
	DefaultDBHost   = "127.0.0.1"
	DefaultDBPort   = 3306
	DefaultDBName   = "ctrlpanel"
	DefaultDBUser   = "ctrluser"
)

// InstallConfig holds everything one install run needs. Created once at the
// start of a run, immutable thereafter; the executor only reads it.
type InstallConfig struct {
	Domain     string `mapstructure:"domain" validate:"required,hostname_rfc1123"`
	AdminEmail string `mapstructure:"ssl_email" validate:"omitempty,email"`

	DBEngine   Engine `mapstructure:"db_engine" validate:"required,oneof=mariadb mysql"`
	DBHost     string `mapstructure:"db_host" validate:"required"`
	DBPort     int    `mapstructure:"db_port" validate:"required,min=1,max=65535"`
	DBName     string `mapstructure:"db_name" validate:"required"`
	DBUser     string `mapstructure:"db_user" validate:"required"`
	DBPassword string `mapstructure:"db_password" validate:"required"`

	// MySQLRootPassword is optional; when empty the database client
	// authenticates over the local socket instead.
	MySQLRootPassword string `mapstructure:"mysql_root_password"`
}

// AppURL returns the APP_URL value persisted into the environment artifact.
// Local domains stay on http because certificate issuance is skipped for
// them.
func (c *InstallConfig) AppURL() string {
	if c.CertificateEligible() {
		return "https://" + c.Domain
	}
	return "http://" + c.Domain
}

// CertificateEligible reports whether this config qualifies for certificate
// issuance: a public-looking domain plus an admin email for the CA account.
func (c *InstallConfig) CertificateEligible() bool {
	return c.AdminEmail != "" && !IsLocalDomain(c.Domain)
}

// IsLocalDomain recognizes loopback and link-local names the certificate
// authority can never validate.
func IsLocalDomain(domain string) bool {
	d := strings.ToLower(domain)
	return d == "localhost" ||
		d == "127.0.0.1" ||
		strings.HasSuffix(d, ".localhost") ||
		strings.HasSuffix(d, ".local") ||
		strings.HasSuffix(d, ".internal") ||
		strings.HasPrefix(d, "127.")
}

var validate = validator.New()

// Validate checks the assembled config, mapping the first failure to a
// ValidationError with the offending field.
func (c *InstallConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := isValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			return panel_err.NewValidationError(
				strings.ToLower(first.Field()),
				fmt.Sprintf("failed %q constraint", first.Tag()))
		}
		return panel_err.NewValidationError("config", err.Error())
	}
	return nil
}

func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// Redacted returns a loggable summary without secrets.
func (c *InstallConfig) Redacted() map[string]string {
	return map[string]string{
		"domain":    c.Domain,
		"ssl_email": c.AdminEmail,
		"db_engine": string(c.DBEngine),
		"db_host":   c.DBHost,
		"db_port":   fmt.Sprintf("%d", c.DBPort),
		"db_name":   c.DBName,
		"db_user":   c.DBUser,
	}
}
