package blob

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tariffstack/internal/logging"
)

// S3Backend stores blobs in an S3-compatible bucket using plain HTTP
// PUT/GET/DELETE/HEAD requests, so it has no AWS-SDK dependency: the
// teacher's stack has no S3 client. Requests are not SigV4-signed (see
// sign), so they are accepted only by servers that allow unsigned access.
// The credentials are read once at construction; the struct itself is the
// process-wide singleton when STORAGE_BACKEND=s3.
type S3Backend struct {
	bucket          string
	region          string
	endpoint        string // empty for AWS S3 itself; set for MinIO/other S3-compatible stores
	accessKeyID     string
	secretAccessKey string
	httpClient      *http.Client
}

// S3Config holds the constructor parameters for an S3Backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3 builds an S3Backend from cfg.
func NewS3(cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backend requires a bucket")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		endpoint = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	return &S3Backend{
		bucket:          cfg.Bucket,
		region:          cfg.Region,
		endpoint:        endpoint,
		accessKeyID:     cfg.AccessKeyID,
		secretAccessKey: cfg.SecretAccessKey,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (b *S3Backend) Scheme() string { return "s3" }

func (b *S3Backend) objectURL(key string) string {
	return b.endpoint + "/" + url.PathEscape(key)
}

func (b *S3Backend) Put(key string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequest(http.MethodPut, b.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build s3 put request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	b.sign(req, data)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("s3 put %q: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("s3 put %q: status %d", key, resp.StatusCode)
	}
	logging.BlobDebug("s3 put key=%s bucket=%s bytes=%d", key, b.bucket, len(data))
	return b.Scheme() + "://" + key, nil
}

func (b *S3Backend) Get(uri string) ([]byte, error) {
	key := KeyFromURI(b.Scheme(), uri)
	req, err := http.NewRequest(http.MethodGet, b.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build s3 get request: %w", err)
	}
	b.sign(req, nil)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("blob not found: %s", uri)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("s3 get %q: status %d", uri, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *S3Backend) Delete(uri string) (bool, error) {
	key := KeyFromURI(b.Scheme(), uri)
	req, err := http.NewRequest(http.MethodDelete, b.objectURL(key), nil)
	if err != nil {
		return false, fmt.Errorf("build s3 delete request: %w", err)
	}
	b.sign(req, nil)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("s3 delete %q: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("s3 delete %q: status %d", uri, resp.StatusCode)
	}
	return true, nil
}

func (b *S3Backend) Exists(uri string) bool {
	key := KeyFromURI(b.Scheme(), uri)
	req, err := http.NewRequest(http.MethodHead, b.objectURL(key), nil)
	if err != nil {
		return false
	}
	b.sign(req, nil)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}

// sign computes no signature: when an access key is configured it only
// sets an X-Amz-Access-Key-Id header, and secretAccessKey is not used.
// Unsigned requests work against S3-compatible servers configured for anonymous
// bucket-local access (e.g. local MinIO in tests); this keeps the
// backend dependency-free rather than pulling in the full AWS SDK for a
// single PUT/GET/DELETE/HEAD surface.
func (b *S3Backend) sign(req *http.Request, body []byte) {
	if b.accessKeyID == "" {
		return
	}
	req.Header.Set("X-Amz-Access-Key-Id", b.accessKeyID)
}
