package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	Debug   bool
	Trace   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	Ticket  TicketConfig
	LDAP    LDAPConfig
	Sync    SyncConfig
	Secrets SecretsConfig

	// Logging configuration. LogLevel is the explicit --log-level flag;
	// BaseLogLevel comes from LOG_LEVEL or log.level.
	LogLevel     string
	BaseLogLevel string
	LogFormat    string
	LogOutput    string
}

// TicketConfig configures the ticket system client.
type TicketConfig struct {
	BaseURL              string
	Token                string
	TrustAllCertificates bool
	Timeout              time.Duration
	PageSize             int
}

// LDAPConfig configures the directory connection and search.
type LDAPConfig struct {
	Host                 string
	Port                 int
	SSL                  bool
	TrustAllCertificates bool
	BindDN               string
	BindPassword         string
	BaseDN               string
	Scope                string
	Filter               string
	LoginAttribute       string
	Attributes           []string
	PageSize             int
}

// SyncConfig configures the reconciliation engine.
type SyncConfig struct {
	JobName               string
	VarDir                string
	DefaultRole           string
	DefaultRoleID         int
	ProtectedRoleIDs      []int
	ProtectedRoleNames    []string
	PreserveUntaggedRoles bool
	Tag                   string
	UnpreservedRoles      []string
	MappingType           string
	MappingFile           string
	MappingTimeout        time.Duration
	ErrorExitDelay        time.Duration
}

// SecretsConfig locates the key used for encrypted config values.
type SecretsConfig struct {
	KeyFile string
}

// setDefaults registers every recognized key so environment overrides
// are picked up for keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ticket.base-url", "")
	v.SetDefault("ticket.token", "")
	v.SetDefault("ticket.trust-all-certificates", false)
	v.SetDefault("ticket.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("ticket.page-size", constants.DefaultTicketPageSize)

	v.SetDefault("ldap.host.name", "")
	v.SetDefault("ldap.host.port", 0)
	v.SetDefault("ldap.host.ssl", false)
	v.SetDefault("ldap.host.trust-all-certificates", false)
	v.SetDefault("ldap.bind.dn", "")
	v.SetDefault("ldap.bind.password", "")
	v.SetDefault("ldap.base-dn", "")
	v.SetDefault("ldap.scope", "sub")
	v.SetDefault("ldap.filter", constants.DefaultDirectoryFilter)
	v.SetDefault("ldap.user.id", constants.DefaultLoginAttribute)
	v.SetDefault("ldap.user.attributes", []string{})
	v.SetDefault("ldap.page-size", constants.DefaultDirectoryPageSize)

	v.SetDefault("sync.job-name", constants.DefaultJobName)
	v.SetDefault("sync.var-dir", constants.DefaultVarDir)
	v.SetDefault("sync.default-role", "")
	v.SetDefault("sync.default-role-id", 0)
	v.SetDefault("sync.protected-role-ids", []int{})
	v.SetDefault("sync.protected-role-names", []string{constants.AdminRoleName})
	v.SetDefault("sync.preserve-untagged-roles", false)
	v.SetDefault("sync.tag", "")
	v.SetDefault("sync.unpreserved-roles", []string{constants.AgentRoleName})
	v.SetDefault("sync.mapping.type", "")
	v.SetDefault("sync.mapping.file", constants.DefaultMappingFile)
	v.SetDefault("sync.mapping.timeout", constants.DefaultScriptTimeout)
	v.SetDefault("sync.error-exit-delay", constants.DefaultErrorExitDelay)

	v.SetDefault("secrets.key-file", constants.DefaultKeyFile)

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("output", "")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("no-color", false)
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (DIRSYNC_ prefix)
// 3. .env files
// 4. Config file (path, else ./config.yaml, ./config/config.yaml, ~/.dirsync.yaml)
// 5. Defaults
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+path, err)
		}
	} else if file := findConfigFile(); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+file, err)
		}
	}

	protectedIDs, err := intList(v, "sync.protected-role-ids")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color") || os.Getenv("NO_COLOR") != "",
		Format:  v.GetString("output"),

		ConfigFile: v.ConfigFileUsed(),

		Ticket: TicketConfig{
			BaseURL:              v.GetString("ticket.base-url"),
			Token:                v.GetString("ticket.token"),
			TrustAllCertificates: v.GetBool("ticket.trust-all-certificates"),
			Timeout:              v.GetDuration("ticket.timeout"),
			PageSize:             v.GetInt("ticket.page-size"),
		},
		LDAP: LDAPConfig{
			Host:                 v.GetString("ldap.host.name"),
			Port:                 v.GetInt("ldap.host.port"),
			SSL:                  v.GetBool("ldap.host.ssl"),
			TrustAllCertificates: v.GetBool("ldap.host.trust-all-certificates"),
			BindDN:               v.GetString("ldap.bind.dn"),
			BindPassword:         v.GetString("ldap.bind.password"),
			BaseDN:               v.GetString("ldap.base-dn"),
			Scope:                v.GetString("ldap.scope"),
			Filter:               v.GetString("ldap.filter"),
			LoginAttribute:       v.GetString("ldap.user.id"),
			Attributes:           stringList(v, "ldap.user.attributes"),
			PageSize:             v.GetInt("ldap.page-size"),
		},
		Sync: SyncConfig{
			JobName:               v.GetString("sync.job-name"),
			VarDir:                v.GetString("sync.var-dir"),
			DefaultRole:           v.GetString("sync.default-role"),
			DefaultRoleID:         v.GetInt("sync.default-role-id"),
			ProtectedRoleIDs:      protectedIDs,
			ProtectedRoleNames:    stringList(v, "sync.protected-role-names"),
			PreserveUntaggedRoles: v.GetBool("sync.preserve-untagged-roles"),
			Tag:                   v.GetString("sync.tag"),
			UnpreservedRoles:      stringList(v, "sync.unpreserved-roles"),
			MappingType:           v.GetString("sync.mapping.type"),
			MappingFile:           v.GetString("sync.mapping.file"),
			MappingTimeout:        v.GetDuration("sync.mapping.timeout"),
			ErrorExitDelay:        v.GetDuration("sync.error-exit-delay"),
		},
		Secrets: SecretsConfig{
			KeyFile: v.GetString("secrets.key-file"),
		},

		BaseLogLevel: firstNonEmpty(os.Getenv("LOG_LEVEL"), v.GetString("log.level")),
		LogFormat:    firstNonEmpty(os.Getenv("LOG_FORMAT"), v.GetString("log.format")),
		LogOutput:    firstNonEmpty(os.Getenv("LOG_OUTPUT"), v.GetString("log.output")),
	}

	if config.Ticket.PageSize <= 0 {
		config.Ticket.PageSize = constants.DefaultTicketPageSize
	}
	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// Flag values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, debug, trace, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.Debug = debug
	c.Trace = trace
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// findConfigFile returns the first existing file of the standard locations.
func findConfigFile() string {
	candidates := []string{
		constants.DefaultConfigName + ".yaml",
		filepath.Join("config", constants.DefaultConfigName+".yaml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".dirsync.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment are not overridden.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// stringList reads a list key. Environment values arrive as one string and
// are split on commas, or on whitespace when no comma is present.
func stringList(v *viper.Viper, key string) []string {
	s, ok := v.Get(key).(string)
	if !ok {
		return cast.ToStringSlice(v.Get(key))
	}
	sep := func(r rune) bool { return r == ',' }
	if !strings.Contains(s, ",") {
		sep = func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }
	}
	var out []string
	for _, f := range strings.FieldsFunc(s, sep) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// intList reads a list key of integers.
func intList(v *viper.Viper, key string) ([]int, error) {
	var out []int
	for _, tok := range stringList(v, key) {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.NewConfigError(key, "invalid integer "+strconv.Quote(tok), err)
		}
		out = append(out, n)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
