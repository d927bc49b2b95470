package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Backend stores objects in a bucket+prefix. Client construction
// (credentials, custom endpoint, path-style addressing) follows the usual
// aws-sdk-go-v2 pattern; keys are repository-addressed paths rather than
// content hashes.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Backend = (*S3Backend)(nil)

// NewS3Backend configures an S3-compatible client from cfg.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Credentials.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Credentials.AccessKey, cfg.Credentials.SecretKey, ""),
		))
	}
	region := string(cfg.Region)
	if cfg.Region == RegionCustom {
		region = cfg.CustomRegion
	}
	loadOpts = append(loadOpts, awsconfig.WithRegion(region))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 backend: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Region == RegionCustom && cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Backend{client: client, bucket: cfg.BucketName, prefix: cfg.Prefix}, nil
}

func (b *S3Backend) key(repo uuid.UUID, path string) string {
	return join(b.prefix, repo.String(), path)
}

func (b *S3Backend) sidecarKey(repo uuid.UUID, path string) string {
	components := Components(path)
	if len(components) == 0 {
		return b.key(repo, "")+"/"+sidecarName("")
	}
	last := components[len(components)-1]
	components[len(components)-1] = sidecarName(last)
	return b.key(repo, strings.Join(components, "/"))
}

func (b *S3Backend) SaveFile(ctx context.Context, repo uuid.UUID, path string, content io.Reader) (SaveResult, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return SaveResult{}, err
	}
	data, hashes, err := hashAndBuffer(content)
	if err != nil {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	key := b.key(repo, path)
	existing, statErr := b.headMeta(ctx, repo, path)
	isNew := errors.Is(statErr, ErrNotFound) || (statErr != nil && isAWSNotFound(statErr))

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeFromExt(path)),
	})
	if err != nil {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	meta := FileMeta{
		Name:      filepath.Base(path),
		Kind:      KindFile,
		SizeBytes: int64(len(data)),
		MimeType:  mimeFromExt(path),
		Hashes:    hashes,
	}
	if existing != nil {
		meta.CreatedAt = existing.CreatedAt
	} else {
		meta.CreatedAt = nowUTC()
	}
	meta.ModifiedAt = nowUTC()

	sidecar, _ := json.Marshal(meta)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.sidecarKey(repo, path)),
		Body:   bytes.NewReader(sidecar),
	})
	if err != nil {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	return SaveResult{BytesWritten: int64(len(data)), IsNew: isNew, Meta: meta}, nil
}

func (b *S3Backend) DeleteFile(ctx context.Context, repo uuid.UUID, path string) (bool, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return false, err
	}
	existed, err := b.FileExists(ctx, repo, path)
	if err != nil {
		return false, err
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(b.key(repo, path)),
	}); err != nil {
		return false, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(b.sidecarKey(repo, path)),
	})
	return existed, nil
}

func (b *S3Backend) OpenFile(ctx context.Context, repo uuid.UUID, path string) (*OpenResult, error) {
	isDir, err := b.looksLikeDirectory(ctx, repo, path)
	if err != nil {
		return nil, err
	}
	if isDir {
		children, err := b.StreamDirectory(ctx, repo, path)
		if err != nil {
			return nil, err
		}
		return &OpenResult{Meta: FileMeta{Name: filepath.Base(path), Kind: KindDirectory}, Children: children}, nil
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key(repo, path))})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, newErr(ErrNotFound, repo.String(), path, nil)
		}
		return nil, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	meta, err := b.headMeta(ctx, repo, path)
	if err != nil || meta == nil {
		meta = &FileMeta{Name: filepath.Base(path), Kind: KindFile, SizeBytes: aws.ToInt64(out.ContentLength)}
	}
	return &OpenResult{Meta: *meta, Body: out.Body}, nil
}

func (b *S3Backend) StreamDirectory(ctx context.Context, repo uuid.UUID, path string) (<-chan ChildResult, error) {
	prefix := b.key(repo, path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	out := make(chan ChildResult)
	go func() {
		defer close(out)
		paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(b.bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String("/"),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				out <- ChildResult{Err: newErr(ErrBackendUnavailable, repo.String(), path, err)}
				return
			}
			for _, p := range page.CommonPrefixes {
				name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), prefix), "/")
				if name == "" {
					continue
				}
				out <- ChildResult{Meta: FileMeta{Name: name, Kind: KindDirectory}}
			}
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
				if name == "" || isSidecar(name) || strings.Contains(name, "/") {
					continue
				}
				out <- ChildResult{Meta: FileMeta{
					Name:       name,
					Kind:       KindFile,
					SizeBytes:  aws.ToInt64(obj.Size),
					ModifiedAt: aws.ToTime(obj.LastModified),
				}}
			}
		}
	}()
	return out, nil
}

func (b *S3Backend) GetFileInformation(ctx context.Context, repo uuid.UUID, path string) (*FileMeta, error) {
	meta, err := b.headMeta(ctx, repo, path)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, newErr(ErrNotFound, repo.String(), path, nil)
	}
	return meta, nil
}

func (b *S3Backend) FileExists(ctx context.Context, repo uuid.UUID, path string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key(repo, path))})
	if err != nil {
		if isAWSNotFound(err) {
			return false, nil
		}
		return false, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	return true, nil
}

func (b *S3Backend) PutRepositoryMeta(ctx context.Context, repo uuid.UUID, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(b.key(repo, "")+"/repository"+sidecarSuffix), Body: bytes.NewReader(data),
	})
	return err
}

func (b *S3Backend) GetRepositoryMeta(ctx context.Context, repo uuid.UUID, dest any) error {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(b.key(repo, "")+"/repository"+sidecarSuffix),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return newErr(ErrNotFound, repo.String(), "", nil)
		}
		return newErr(ErrBackendUnavailable, repo.String(), "", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (b *S3Backend) ValidateConfigChange(ctx context.Context, candidate Config) error {
	if candidate.Kind != KindS3 {
		return fmt.Errorf("s3 backend: candidate config is not kind=s3")
	}
	if err := candidate.S3.Validate(); err != nil {
		return err
	}
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(candidate.S3.BucketName)})
	return err
}

func (b *S3Backend) Unload(ctx context.Context) error { return nil }

// Ping checks bucket reachability for health probes.
func (b *S3Backend) Ping(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	return err
}

func (b *S3Backend) headMeta(ctx context.Context, repo uuid.UUID, path string) (*FileMeta, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.sidecarKey(repo, path))})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, nil
		}
		return nil, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (b *S3Backend) looksLikeDirectory(ctx context.Context, repo uuid.UUID, path string) (bool, error) {
	if exists, _ := b.FileExists(ctx, repo, path); exists {
		return false, nil
	}
	prefix := b.key(repo, path)
	if prefix != "" {
		prefix += "/"
	}
	page, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket), Prefix: aws.String(prefix), MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	if len(page.Contents) > 0 || len(page.CommonPrefixes) > 0 {
		return true, nil
	}
	return false, newErr(ErrNotFound, repo.String(), path, nil)
}

func isAWSNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}
