package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mgit/pkg/core"
	"mgit/pkg/storage"
	"mgit/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Adapter implements storage.Store on an S3-compatible bucket. Keys use the
// same fan-out as the disk layout ("aa/bbcc...") and values are the same
// zlib streams, so a bucket can be synced to and from a local objects dir.
type Adapter struct {
	client *s3.Client
	bucket string
	policy storage.WritePolicy
}

// Config is used to initialize the Adapter.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	WritePolicy     storage.WritePolicy
}

// NewAdapter builds the client and makes sure the bucket exists.
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO needs path-style addressing: http://host:9000/bucket/key
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &cfg.Bucket}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &cfg.Bucket}); err != nil {
			slog.Warn("failed to ensure bucket exists",
				slog.String("bucket", cfg.Bucket),
				slog.String("err", err.Error()),
			)
		}
	}

	policy := cfg.WritePolicy
	if policy == "" {
		policy = storage.PolicySkip
	}
	return &Adapter{
		client: client,
		bucket: cfg.Bucket,
		policy: policy,
	}, nil
}

// transformKey maps a digest to its object key.
// Logic: "aabbcc..." -> "aa/bbcc..."
func transformKey(hash types.Hash) string {
	dir, file := storage.ShardKey(hash)
	if dir == "" {
		return file
	}
	return dir + "/" + file
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	hash := obj.ID()
	if !hash.IsValid() {
		return fmt.Errorf("%w: %w: %q", storage.ErrWritingFile, types.ErrInvalidFormat, hash)
	}

	// HEAD is cheaper than PUT; skip or reject known objects up front.
	exists, err := s.Has(ctx, hash)
	if err != nil {
		return fmt.Errorf("%w: s3 existence check: %w", storage.ErrWritingFile, err)
	}
	if exists {
		if s.policy == storage.PolicyStrict {
			return storage.AlreadyExists(hash)
		}
		return nil
	}

	compressed, err := storage.Compress(obj.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrWritingFile, hash, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(transformKey(hash)),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String("application/zlib"),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 put %s: %w", storage.ErrWritingFile, hash, err)
	}
	return nil
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) ([]byte, error) {
	hash, err := types.ValidateFormat(string(hash))
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(transformKey(hash)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, hash)
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	compressed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", hash, err)
	}
	data, err := storage.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", hash, err)
	}
	return data, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	if !hash.IsValid() {
		return false, fmt.Errorf("%w: %q", types.ErrInvalidFormat, hash)
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(transformKey(types.Hash(strings.ToLower(string(hash))))),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// some S3 implementations only surface a generic 404
	if strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, err
}

// ExpandHash lists at most two keys under the prefix: zero is not found,
// one is the answer, two is ambiguous.
func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	prefix, err := types.ValidatePrefix(string(short))
	if err != nil {
		return "", err
	}
	p := string(prefix)

	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(p[:2] + "/" + p[2:]),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return "", fmt.Errorf("s3 list failed: %w", err)
	}

	switch n := aws.ToInt32(resp.KeyCount); {
	case n == 0:
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	case n > 1:
		return "", fmt.Errorf("%w: %s", storage.ErrAmbiguousHash, p)
	}

	// "a8/fd123..." -> "a8fd123..."
	key := aws.ToString(resp.Contents[0].Key)
	return types.Hash(strings.Replace(key, "/", "", 1)), nil
}
