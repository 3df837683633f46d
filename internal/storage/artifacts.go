package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bilgisen/contentpipe/internal/config"
)

// ArtifactStore persists generated files (post HTML, manifests) and returns
// where they ended up
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// NewArtifactStore returns an R2 store when R2 is configured and a local
// directory store under cfg.OutputDir otherwise
func NewArtifactStore(cfg *config.Config) (ArtifactStore, error) {
	if cfg.HasR2() {
		return NewR2Artifacts(R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKey,
			SecretAccessKey: cfg.R2SecretKey,
			Bucket:          cfg.R2Bucket,
			PublicURL:       cfg.R2PublicURL,
		})
	}
	return NewLocalArtifacts(cfg.OutputDir)
}

func cleanKey(key string) (string, error) {
	key = path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("empty artifact key")
	}
	return key, nil
}

// LocalArtifacts writes artifacts below a directory
type LocalArtifacts struct {
	dir string
}

// NewLocalArtifacts creates dir if needed
func NewLocalArtifacts(dir string) (*LocalArtifacts, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalArtifacts{dir: dir}, nil
}

// Put writes data to dir/key and returns the file path
func (l *LocalArtifacts) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	target := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return "", err
	}
	return target, nil
}

// R2Config describes a Cloudflare R2 bucket
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
	// Endpoint overrides the account endpoint, e.g. for S3-compatible test servers
	Endpoint string
}

// R2Artifacts uploads artifacts to an R2 bucket over the S3 API
type R2Artifacts struct {
	client    *s3.Client
	bucket    string
	publicURL string
	endpoint  string
}

// NewR2Artifacts builds an S3 client pointed at the account's R2 endpoint
func NewR2Artifacts(cfg R2Config) (*R2Artifacts, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, fmt.Errorf("R2 configuration incomplete: missing account id")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Artifacts{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		endpoint:  strings.TrimRight(endpoint, "/"),
	}, nil
}

// Put uploads data under key and returns its public URL
func (r *R2Artifacts) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return r.URL(key), nil
}

// URL returns the public URL for key, falling back to the bucket endpoint
func (r *R2Artifacts) URL(key string) string {
	if r.publicURL != "" {
		return r.publicURL + "/" + key
	}
	return fmt.Sprintf("%s/%s/%s", r.endpoint, r.bucket, key)
}
