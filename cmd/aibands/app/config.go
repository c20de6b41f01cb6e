package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files. Flags are applied on top by
// UpdateFromFlags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string
	DryRun  bool

	// Config file
	ConfigFile string

	// Corpus layout
	Root            string
	SrcDir          string
	DistDir         string
	Schema          string
	ClusterStrategy string
	Ledger          string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (AIBANDS_*)
// 3. .env files
// 4. Config file (.aibands.yaml in the working or home directory)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile loads configuration reading the given config file instead
// of searching for one. An empty path falls back to AIBANDS_CONFIG and then
// the search. An explicit file must exist.
func LoadConfigFile(path string) (*Config, error) {
	return loadConfig(viper.New(), path)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	// .env files must be loaded before env binding
	loadEnvFiles()

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("root", ".")
	v.SetDefault("src_dir", constants.DefaultSrcDir)
	v.SetDefault("dist_dir", constants.DefaultDistDir)
	v.SetDefault("schema", constants.DefaultSchemaFile)
	v.SetDefault("cluster_strategy", "unionfind")
	v.SetDefault("ledger", constants.DefaultLedgerFile)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(constants.ConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config file", err.Error(), err)
		}
	}

	return &Config{
		Format:     v.GetString("format"),
		DryRun:     v.GetBool("dry_run"),
		ConfigFile: v.ConfigFileUsed(),

		Root:            v.GetString("root"),
		SrcDir:          v.GetString("src_dir"),
		DistDir:         v.GetString("dist_dir"),
		Schema:          v.GetString("schema"),
		ClusterStrategy: v.GetString("cluster_strategy"),
		Ledger:          v.GetString("ledger"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars. Empty strings leave
// the loaded value in place.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, root string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if root != "" {
		c.Root = root
	}
}

// Path resolves p against the corpus root unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
