// Package config builds the uploader configuration from defaults, an optional
// YAML file and OBJECT_UPLOAD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Storage providers.
const (
	ProviderMinio = "minio"
	ProviderS3    = "s3"
)

const envPrefix = "OBJECT_UPLOAD_"

// Config is built once at startup and never changes afterwards.
type Config struct {
	// Endpoint is the host[:port] of the storage service.
	Endpoint string `yaml:"endpoint" validate:"required"`
	// Bucket receives the uploaded object. It is created when missing.
	Bucket string `yaml:"bucket" validate:"required,min=3,max=63"`
	Region string `yaml:"region" validate:"required"`
	// Secure selects https.
	Secure bool `yaml:"secure"`
	// Provider selects the client library: minio or s3.
	Provider string `yaml:"provider" validate:"required,oneof=minio s3"`
	// MaxRetries is the total number of upload attempts.
	MaxRetries int `yaml:"max_retries" validate:"gte=1,lte=10"`
	// SecretsPath points to the JSON credentials file.
	SecretsPath string `yaml:"secrets_path" validate:"required"`
	// ContentType of the object, detected from the file when empty.
	ContentType string `yaml:"content_type"`
	// PartSizeMB is the multipart upload part size of the s3 provider.
	PartSizeMB int64 `yaml:"part_size_mb" validate:"gte=5,lte=5120"`
}

// Default ...
func Default() Config {
	return Config{
		Endpoint:    "s3.us-central-1.wasabisys.com",
		Bucket:      "pardis",
		Region:      "us-central-1",
		Secure:      true,
		Provider:    ProviderMinio,
		MaxRetries:  3,
		SecretsPath: "secrets.json",
		PartSizeMB:  10,
	}
}

// Load applies, in increasing precedence: defaults, the YAML file at configPath
// (skipped when empty) and the environment. The secrets path is made absolute.
func Load(envRepo env.Repository, pathModifier pathutil.PathModifier, configPath string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := readFile(configPath, &cfg); err != nil {
			return Config{}, &StartupError{Reason: "invalid config file " + configPath, Err: err}
		}
	}

	if err := applyEnv(envRepo, &cfg); err != nil {
		return Config{}, &StartupError{Reason: "invalid environment", Err: err}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, &StartupError{Reason: "invalid configuration", Err: err}
	}

	absPath, err := pathModifier.AbsPath(cfg.SecretsPath)
	if err != nil {
		return Config{}, &StartupError{Reason: "invalid secrets path", Err: err}
	}
	cfg.SecretsPath = absPath

	return cfg, nil
}

// Validate checks the field constraints of cfg.
func Validate(cfg Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			var msgs []string
			for _, fieldErr := range validationErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s' (value: %v)", fieldErr.Field(), fieldErr.Tag(), fieldErr.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func readFile(pth string, cfg *Config) error {
	file, err := os.Open(pth)
	if err != nil {
		return err
	}
	defer file.Close() //nolint:errcheck

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func applyEnv(envRepo env.Repository, cfg *Config) error {
	setString := func(key string, dst *string) {
		if value := envRepo.Get(envPrefix + key); value != "" {
			*dst = value
		}
	}
	setString("ENDPOINT", &cfg.Endpoint)
	setString("BUCKET", &cfg.Bucket)
	setString("REGION", &cfg.Region)
	setString("PROVIDER", &cfg.Provider)
	setString("SECRETS_PATH", &cfg.SecretsPath)
	setString("CONTENT_TYPE", &cfg.ContentType)

	if value := envRepo.Get(envPrefix + "SECURE"); value != "" {
		secure, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%sSECURE: %w", envPrefix, err)
		}
		cfg.Secure = secure
	}

	if value := envRepo.Get(envPrefix + "MAX_RETRIES"); value != "" {
		maxRetries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%sMAX_RETRIES: %w", envPrefix, err)
		}
		cfg.MaxRetries = maxRetries
	}

	if value := envRepo.Get(envPrefix + "PART_SIZE_MB"); value != "" {
		partSize, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%sPART_SIZE_MB: %w", envPrefix, err)
		}
		cfg.PartSizeMB = partSize
	}

	return nil
}
