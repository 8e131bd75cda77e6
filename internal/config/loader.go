package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file base name (s3scope.yaml).
	FileName = "s3scope"

	// EnvPrefix namespaces environment variables (S3SCOPE_BUCKET, ...).
	EnvPrefix = "S3SCOPE"
)

// Load reads configuration from the given file path, or from the default
// search locations when path is empty. A missing config file is not an
// error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	// Best effort .env preload so S3SCOPE_* vars in a local .env file are
	// visible to viper. Absence is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "s3scope"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults registered per key so AutomaticEnv can override each one.
	def := Default()
	v.SetDefault("bucket", def.Bucket)
	v.SetDefault("endpoint", def.Endpoint)
	v.SetDefault("region", def.Region)
	v.SetDefault("anonymous", def.Anonymous)
	v.SetDefault("force_path_style", def.ForcePathStyle)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Path-style is what S3-compatible endpoints (MinIO, moto, Spaces)
	// expect; apply it whenever a custom endpoint is configured.
	if cfg.Endpoint != "" {
		cfg.ForcePathStyle = true
	}

	return &cfg, nil
}

// defaultFileContent renders the default config as commented YAML.
func defaultFileContent() []byte {
	var buf bytes.Buffer
	buf.WriteString("# s3scope configuration\n")
	buf.WriteString("# Values can be overridden with S3SCOPE_* environment variables\n")
	buf.WriteString("# or command-line flags.\n")

	out, err := yaml.Marshal(Default())
	if err != nil {
		// Default() is a plain struct; marshalling it cannot fail.
		panic(err)
	}
	buf.Write(out)
	return buf.Bytes()
}
