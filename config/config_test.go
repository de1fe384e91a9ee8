package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	delete(repo.envVars, key)
	return nil
}

func (repo fakeEnvRepo) List() []string {
	envs := []string{}
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	pth := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(pth, []byte(content), 0o600))
	return pth
}

func TestLoad_Defaults(t *testing.T) {
	// Given
	envRepo := fakeEnvRepo{envVars: map[string]string{}}

	// When
	cfg, err := Load(envRepo, pathutil.NewPathModifier(), "")

	// Then
	require.NoError(t, err)
	assert.Equal(t, "s3.us-central-1.wasabisys.com", cfg.Endpoint)
	assert.Equal(t, "pardis", cfg.Bucket)
	assert.Equal(t, "us-central-1", cfg.Region)
	assert.True(t, cfg.Secure)
	assert.Equal(t, ProviderMinio, cfg.Provider)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "", cfg.ContentType)
	assert.Equal(t, int64(10), cfg.PartSizeMB)
	assert.True(t, filepath.IsAbs(cfg.SecretsPath))
	assert.Equal(t, "secrets.json", filepath.Base(cfg.SecretsPath))
}

func TestLoad_Precedence(t *testing.T) {
	// Given
	secretsPath := writeFile(t, "secrets.json", `{}`)
	configPath := writeFile(t, "config.yml", fmt.Sprintf(`
endpoint: localhost:9000
bucket: from-file
secure: false
max_retries: 5
secrets_path: %s
`, secretsPath))
	envRepo := fakeEnvRepo{envVars: map[string]string{
		"OBJECT_UPLOAD_BUCKET":   "from-env",
		"OBJECT_UPLOAD_PROVIDER": "s3",
	}}

	// When
	cfg, err := Load(envRepo, pathutil.NewPathModifier(), configPath)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.Endpoint, "file overrides default")
	assert.Equal(t, "from-env", cfg.Bucket, "env overrides file")
	assert.Equal(t, "us-central-1", cfg.Region, "default kept")
	assert.False(t, cfg.Secure)
	assert.Equal(t, ProviderS3, cfg.Provider)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, secretsPath, cfg.SecretsPath)
}

func TestLoad_EmptyFile(t *testing.T) {
	configPath := writeFile(t, "config.yml", "")

	cfg, err := Load(fakeEnvRepo{envVars: map[string]string{}}, pathutil.NewPathModifier(), configPath)

	require.NoError(t, err)
	assert.Equal(t, "pardis", cfg.Bucket)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name       string
		configFile string
		envVars    map[string]string
		wantErr    string
	}{
		{
			name:       "unknown key in file",
			configFile: "buckett: typo\n",
			wantErr:    "invalid config file",
		},
		{
			name:       "malformed yaml",
			configFile: "endpoint: [\n",
			wantErr:    "invalid config file",
		},
		{
			name:    "secure is not a bool",
			envVars: map[string]string{"OBJECT_UPLOAD_SECURE": "maybe"},
			wantErr: "OBJECT_UPLOAD_SECURE",
		},
		{
			name:    "max retries is not a number",
			envVars: map[string]string{"OBJECT_UPLOAD_MAX_RETRIES": "three"},
			wantErr: "OBJECT_UPLOAD_MAX_RETRIES",
		},
		{
			name:    "zero max retries",
			envVars: map[string]string{"OBJECT_UPLOAD_MAX_RETRIES": "0"},
			wantErr: "MaxRetries failed on 'gte'",
		},
		{
			name:    "unknown provider",
			envVars: map[string]string{"OBJECT_UPLOAD_PROVIDER": "gcs"},
			wantErr: "Provider failed on 'oneof'",
		},
		{
			name:    "part size below the S3 minimum",
			envVars: map[string]string{"OBJECT_UPLOAD_PART_SIZE_MB": "1"},
			wantErr: "PartSizeMB failed on 'gte'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			configPath := ""
			if tt.configFile != "" {
				configPath = writeFile(t, "config.yml", tt.configFile)
			}
			envVars := tt.envVars
			if envVars == nil {
				envVars = map[string]string{}
			}

			// When
			_, err := Load(fakeEnvRepo{envVars: envVars}, pathutil.NewPathModifier(), configPath)

			// Then
			require.Error(t, err)
			var startupErr *StartupError
			assert.True(t, errors.As(err, &startupErr))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(fakeEnvRepo{envVars: map[string]string{}}, pathutil.NewPathModifier(), filepath.Join(t.TempDir(), "missing.yml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
