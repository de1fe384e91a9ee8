//go:build integration
// +build integration

package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	localstackImage = "localstack/localstack:3.8"
	region          = "us-east-1"
)

var logger = log.NewLogger()

func checksumOf(bytes []byte) string {
	hash := sha256.New()
	hash.Write(bytes)
	return hex.EncodeToString(hash.Sum(nil))
}

// startLocalStack runs a LocalStack container for the test and returns its host:port.
func startLocalStack(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := localstack.Run(ctx, localstackImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err, "start LocalStack container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate LocalStack container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4566")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

// newVerifier returns a plain S3 client used to read back what the uploader stored.
func newVerifier(t *testing.T, endpoint string) *s3.Client {
	t.Helper()
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("http://" + endpoint)
	})
}

func downloadChecksum(t *testing.T, client *s3.Client, bucket, key string) string {
	t.Helper()
	output, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	require.NoError(t, err)
	defer output.Body.Close() //nolint:errcheck

	content, err := io.ReadAll(output.Body)
	require.NoError(t, err)
	return checksumOf(content)
}

// writeTestFile writes size bytes of repeating text and returns the path and checksum.
func writeTestFile(t *testing.T, name string, size int) (string, string) {
	t.Helper()
	content := []byte(strings.Repeat("object-upload integration test\n", size/31+1))[:size]
	pth := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(pth, content, 0o644))
	return pth, checksumOf(content)
}

func writeSecrets(t *testing.T) string {
	t.Helper()
	pth := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(pth, []byte(`{"access_key": "test", "secret_key": "test"}`), 0o600))
	return pth
}

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	value, ok := repo.envVars[key]
	if ok {
		return value
	} else {
		return ""
	}
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	repo.envVars[key] = ""
	return nil
}

func (repo fakeEnvRepo) List() []string {
	var values []string
	for _, v := range repo.envVars {
		values = append(values, v)
	}
	return values
}
