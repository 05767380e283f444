package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"dirbuf/internal/errors"
	"dirbuf/internal/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 provider.
type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Buckets      []string
	UsePathStyle bool
}

// s3API is the part of the S3 client the provider uses.
type s3API interface {
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 presents buckets as remotes and slash separated key prefixes as
// directories.
type S3 struct {
	client  s3API
	buckets []string
}

// NewS3 creates an S3 provider. Static credentials are used when an access
// key is configured, the default AWS chain otherwise.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{client: client, buckets: cfg.Buckets}, nil
}

func (b *S3) Remotes(ctx context.Context) ([]string, error) {
	if len(b.buckets) > 0 {
		return b.buckets, nil
	}
	out, err := b.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		names = append(names, aws.ToString(bucket.Name))
	}
	return names, nil
}

// prefix turns a key path into a listing prefix ("" or "a/b/").
func prefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

func (b *S3) List(ctx context.Context, dir string) ([]Entry, error) {
	bucket, key, err := SplitRemotePath(dir)
	if err != nil {
		return nil, err
	}
	p := prefix(key)

	var entries []Entry
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(p),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), p), "/")
			if name != "" {
				entries = append(entries, Entry{Name: name, IsDir: true})
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), p)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			entries = append(entries, Entry{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return entries, nil
}

func (b *S3) Download(ctx context.Context, src, dst string) error {
	bucket, key, err := SplitRemotePath(src)
	if err != nil {
		return err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return fmt.Errorf("get object %s: %w: %w", src, fs.ErrNotExist, err)
	}
	if err != nil {
		return fmt.Errorf("get object %s: %w", src, err)
	}
	defer out.Body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// keys returns every key below a directory prefix.
func (b *S3) keys(ctx context.Context, bucket, key string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix(key)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *S3) copyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + url.PathEscape(srcKey)),
	})
	if err != nil {
		return fmt.Errorf("copy %s/%s -> %s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}
	log.Debugf("S3 copy object %s/%s -> %s/%s", srcBucket, srcKey, dstBucket, dstKey)
	return nil
}

func (b *S3) Copy(ctx context.Context, src, dst string, isDir bool) error {
	srcBucket, srcKey, err := SplitRemotePath(src)
	if err != nil {
		return err
	}
	dstBucket, dstKey, err := SplitRemotePath(dst)
	if err != nil {
		return err
	}
	if !isDir {
		return b.copyObject(ctx, srcBucket, srcKey, dstBucket, dstKey)
	}

	keys, err := b.keys(ctx, srcBucket, srcKey)
	if err != nil {
		return fmt.Errorf("list %s: %w", src, err)
	}
	for _, k := range keys {
		target := path.Join(dstKey, strings.TrimPrefix(k, prefix(srcKey)))
		if strings.HasSuffix(k, "/") {
			target += "/"
		}
		if err := b.copyObject(ctx, srcBucket, k, dstBucket, target); err != nil {
			return err
		}
	}
	return nil
}

// Move copies and then deletes; S3 has no rename.
func (b *S3) Move(ctx context.Context, src, dst string, isDir bool) error {
	if err := b.Copy(ctx, src, dst, isDir); err != nil {
		return err
	}
	return b.Delete(ctx, src, isDir)
}

func (b *S3) deleteObject(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	log.Debugf("S3 delete object %s/%s", bucket, key)
	return nil
}

func (b *S3) Delete(ctx context.Context, p string, isDir bool) error {
	bucket, key, err := SplitRemotePath(p)
	if err != nil {
		return err
	}
	if !isDir {
		return b.deleteObject(ctx, bucket, key)
	}
	keys, err := b.keys(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("list %s: %w", p, err)
	}
	for _, k := range keys {
		if err := b.deleteObject(ctx, bucket, k); err != nil {
			return err
		}
	}
	return nil
}
