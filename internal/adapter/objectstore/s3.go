package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
	"github.com/pscheid92/rubyemotes/internal/domain"
)

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicURL       string
	CredentialsFile string
	// PublicReadACL attaches the public-read canned ACL to uploads. Buckets
	// with BucketOwnerEnforced ownership reject ACLs and must grant public
	// read through a bucket policy instead.
	PublicReadACL bool
}

// S3Store keeps emote images in one bucket. Objects are addressed as
// <public base>/<bucket>/<key>.
type S3Store struct {
	client  s3API
	bucket  string
	baseURL string
	acl     types.ObjectCannedACL
	metrics *metrics.StorageMetrics
}

var _ domain.BlobStore = (*S3Store)(nil)

// NewS3Store loads the default AWS config chain. If opts.Endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Store(ctx context.Context, opts Options, m *metrics.StorageMetrics) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.CredentialsFile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedCredentialsFiles([]string{opts.CredentialsFile}))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Store(s3.NewFromConfig(cfg, s3opts...), opts, m), nil
}

func newS3Store(client s3API, opts Options, m *metrics.StorageMetrics) *S3Store {
	store := &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: publicBase(opts),
		metrics: m,
	}
	if opts.PublicReadACL {
		store.acl = types.ObjectCannedACLPublicRead
	}
	return store
}

// publicBase picks STORAGE_PUBLIC_URL, then the endpoint, then the regional AWS host.
func publicBase(opts Options) string {
	base := opts.PublicURL
	if base == "" {
		base = opts.Endpoint
	}
	if base == "" {
		base = fmt.Sprintf("https://s3.%s.amazonaws.com", opts.Region)
	}
	return strings.TrimRight(base, "/")
}

func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (_ string, err error) {
	defer func(start time.Time) { s.metrics.Observe("upload", start, err) }(time.Now())

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         s.acl,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err = s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object %s: %w", key, err)
	}

	if s.metrics != nil && size > 0 {
		s.metrics.UploadedBytes.Add(float64(size))
	}
	slog.DebugContext(ctx, "Object uploaded", "bucket", s.bucket, "key", key, "size", size)
	return s.PublicURL(key), nil
}

// Delete removes key. S3 reports success for keys that do not exist.
func (s *S3Store) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { s.metrics.Observe("delete", start, err) }(time.Now())

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) (_ []domain.Object, err error) {
	defer func(start time.Time) { s.metrics.Observe("list", start, err) }(time.Now())

	var objects []domain.Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, domain.Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// Ping checks that the bucket exists and is reachable with the configured credentials.
func (s *S3Store) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.metrics.Observe("head_bucket", start, err) }(time.Now())

	if _, err = s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PublicURL returns the public address of key. Each path segment is escaped.
func (s *S3Store) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + s.bucket + "/" + strings.Join(segments, "/")
}

// ObjectKey recovers the key from a URL built by PublicURL. URLs written under
// a different public base still resolve: everything after the first
// "<bucket>/" is taken as the key.
func (s *S3Store) ObjectKey(publicURL string) (string, bool) {
	escaped, found := strings.CutPrefix(publicURL, s.baseURL+"/"+s.bucket+"/")
	if !found {
		_, escaped, found = strings.Cut(publicURL, s.bucket+"/")
	}
	if !found || escaped == "" {
		return "", false
	}

	key, err := url.PathUnescape(escaped)
	if err != nil {
		return escaped, true
	}
	return key, true
}
