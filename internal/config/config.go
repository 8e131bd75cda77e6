// Package config loads tool configuration: which bucket and endpoint to
// target and how to reach them.
//
// Sources, in increasing precedence:
//  1. Built-in defaults
//  2. Config file (s3scope.yaml in the working directory or
//     $HOME/.config/s3scope/)
//  3. Environment variables (S3SCOPE_* — a .env file is preloaded if present)
//
// Command-line flags override all of the above at the command layer.
package config

import (
	"fmt"
	"os"
)

// Config describes the target bucket and connection settings.
type Config struct {
	// Bucket is the object storage bucket to enumerate (required).
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Empty targets AWS S3.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Region is the bucket region. Empty lets the SDK or provider default.
	Region string `mapstructure:"region" yaml:"region"`

	// Anonymous issues unsigned requests. Public buckets need no
	// credentials, so this defaults to true.
	Anonymous bool `mapstructure:"anonymous" yaml:"anonymous"`

	// ForcePathStyle forces path-style URLs; most S3-compatible stores
	// require it. Defaults to true whenever Endpoint is set.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Anonymous: true,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required (set it in %s, %s, or with --bucket)", FileName, EnvPrefix+"_BUCKET")
	}
	return nil
}

// WriteDefault writes a commented default config file to path.
// Fails if the file already exists unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return os.WriteFile(path, defaultFileContent(), 0o644)
}
