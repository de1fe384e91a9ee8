// Package storagetest runs an in-process S3 endpoint for storage client tests.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
	"github.com/yashikota/minis3"
)

// Credentials and region accepted by the endpoint.
const (
	AccessKey = "minis3-access-key"
	SecretKey = "minis3-secret-key"
	Region    = "us-east-1"
)

// NewServer starts minis3 and returns its host:port. It is closed with the test.
func NewServer(t *testing.T) string {
	t.Helper()
	server, err := minis3.Run()
	require.NoError(t, err, "start minis3")
	t.Cleanup(func() {
		_ = server.Close()
	})
	return server.Addr()
}

// ClosedEndpoint returns a host:port nothing listens on.
func ClosedEndpoint(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

// NewClient returns a plain S3 client to prepare and inspect the endpoint.
func NewClient(t *testing.T, endpoint string) *s3.Client {
	t.Helper()
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(AccessKey, SecretKey, "")),
	)
	require.NoError(t, err)

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("http://" + endpoint)
		o.UsePathStyle = true
	})
}

// CreateBucket ...
func CreateBucket(t *testing.T, client *s3.Client, bucket string) {
	t.Helper()
	_, err := client.CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	require.NoError(t, err)
}

// EnableVersioning makes uploads into bucket return a version id.
func EnableVersioning(t *testing.T, client *s3.Client, bucket string) {
	t.Helper()
	_, err := client.PutBucketVersioning(context.Background(), &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	require.NoError(t, err)
}

// ReadObject returns the stored content of bucket/key.
func ReadObject(t *testing.T, client *s3.Client, bucket, key string) []byte {
	t.Helper()
	output, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	require.NoError(t, err)
	defer output.Body.Close() //nolint:errcheck

	content, err := io.ReadAll(output.Body)
	require.NoError(t, err)
	return content
}

type failure struct {
	status int
	code   string
}

// FaultProxy forwards requests to an endpoint and fails scripted object uploads
// with an S3 error response instead.
type FaultProxy struct {
	server *httptest.Server
	proxy  *httputil.ReverseProxy

	mu       sync.Mutex
	failures []failure
	puts     int
}

// NewFaultProxy starts a proxy in front of target (host:port). It is closed with the test.
func NewFaultProxy(t *testing.T, target string) *FaultProxy {
	t.Helper()
	targetURL, err := url.Parse("http://" + target)
	require.NoError(t, err)

	p := &FaultProxy{proxy: httputil.NewSingleHostReverseProxy(targetURL)}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

// Endpoint returns the host:port of the proxy.
func (p *FaultProxy) Endpoint() string {
	return strings.TrimPrefix(p.server.URL, "http://")
}

// FailNextPuts makes the next n object (or part) uploads fail.
func (p *FaultProxy) FailNextPuts(n int, status int, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.failures = append(p.failures, failure{status: status, code: code})
	}
}

// PutCount returns the number of object (or part) uploads received, failed ones included.
func (p *FaultProxy) PutCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.puts
}

func (p *FaultProxy) handle(w http.ResponseWriter, r *http.Request) {
	_, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if r.Method != http.MethodPut || key == "" {
		p.proxy.ServeHTTP(w, r)
		return
	}

	p.mu.Lock()
	p.puts++
	var f *failure
	if len(p.failures) > 0 {
		f = &p.failures[0]
		p.failures = p.failures[1:]
	}
	p.mu.Unlock()

	if f == nil {
		p.proxy.ServeHTTP(w, r)
		return
	}

	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(f.status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>%s</Message><Resource>%s</Resource><RequestId>fault-proxy</RequestId></Error>`,
		f.code, http.StatusText(f.status), r.URL.Path)
}
