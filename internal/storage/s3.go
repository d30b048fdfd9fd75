package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const removeBatchSize = 1000

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// S3Store implements BlobStore on an S3-compatible bucket.
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("aws config load: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Move copies the object to its new key and deletes the old one; S3 has
// no rename primitive.
func (s *S3Store) Move(ctx context.Context, fromKey, toKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + url.PathEscape(fromKey)),
		Key:        aws.String(toKey),
	})
	if err != nil {
		return fmt.Errorf("copy object %s -> %s: %w", fromKey, toKey, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fromKey),
	})
	if err != nil {
		return fmt.Errorf("delete moved object %s: %w", fromKey, err)
	}
	return nil
}

func (s *S3Store) Remove(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += removeBatchSize {
		end := start + removeBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	var out []BlobInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			info := BlobInfo{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *S3Store) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

func (s *S3Store) KeyFromURL(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, s.publicBase+"/") {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, s.publicBase+"/")
	if key == "" {
		return "", false
	}
	return key, true
}
