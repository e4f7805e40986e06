package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/navstack/internal/errors"
)

// S3Scheme prefixes route table sources kept in object storage.
const S3Scheme = "s3://"

// ObjectStore is the subset of *s3.Client used for route tables.
type ObjectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UsePathStyle    bool
}

// S3OptionsFromEnv reads the standard AWS variables. NAVSTACK_S3_ENDPOINT
// points at S3-compatible stores such as MinIO and implies path-style access.
func S3OptionsFromEnv() S3Options {
	opts := S3Options{
		Region:          os.Getenv("AWS_REGION"),
		Endpoint:        os.Getenv("NAVSTACK_S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
	if opts.Region == "" {
		opts.Region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	opts.UsePathStyle = opts.Endpoint != ""
	return opts
}

// NewS3Client creates an S3 client. Without static keys requests are sent
// unsigned, which suits public buckets.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			SessionToken:    opts.SessionToken,
			Source:          "navstack",
		}
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return creds, nil
			}))
	}
	return s3.New(o)
}

// IsS3 reports whether source names an object in S3.
func IsS3(source string) bool {
	return strings.HasPrefix(source, S3Scheme)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, S3Scheme)
	if !ok {
		return "", "", errors.New("E123").WithDetail(uri + " is not an s3:// URI")
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.New("E123").
			WithDetail("Expected s3://bucket/key, got " + uri)
	}
	return bucket, key, nil
}

// LoadS3 fetches and parses a route table from S3.
func LoadS3(ctx context.Context, store ObjectStore, uri string) (*Config, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	out, err := store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("E123").WithDetail("GetObject " + uri).Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New("E123").WithDetail("reading " + uri).Wrap(err)
	}

	cfg, err := Parse(path.Base(key), data)
	if err != nil {
		return nil, err
	}
	cfg.configPath = uri
	return cfg, nil
}

// SaveS3 uploads the route table to S3 in the format its key names.
func (c *Config) SaveS3(ctx context.Context, store ObjectStore, uri string) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return err
	}

	var data []byte
	contentType := "application/json"
	if isYAML(key) {
		data, err = yaml.Marshal(c)
		contentType = "application/yaml"
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.New("E122").Wrap(err)
	}

	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.New("E123").WithDetail("PutObject " + uri).Wrap(err)
	}
	c.configPath = uri
	return nil
}

// LoadSource loads a route table from a directory, a file or an s3:// URI.
// A nil store is replaced by a client configured from the environment.
func LoadSource(ctx context.Context, source string, store ObjectStore) (*Config, error) {
	if IsS3(source) {
		if store == nil {
			store = NewS3Client(S3OptionsFromEnv())
		}
		return LoadS3(ctx, store, source)
	}

	info, err := os.Stat(source)
	if err == nil && info.IsDir() {
		return Load(source)
	}
	return LoadFile(source)
}
