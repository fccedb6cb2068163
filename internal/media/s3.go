package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3互換ストレージへの接続設定。
type S3Config struct {
	Endpoint       string // host:port または完全なURL。空の場合はAWSのデフォルト
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	PublicBaseURL  string // 公開URLのベース（例: https://cdn.example.com/bucket）
	ForcePathStyle bool
}

// objectPutter はS3 APIのうちアップロードに必要な部分。
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader はS3互換ストレージに画像をアップロードするUploader。
type S3Uploader struct {
	api     objectPutter
	bucket  string
	baseURL string
}

// NewS3Uploader はS3Uploaderを生成する。
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("S3 access key and secret key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = defaultPublicBaseURL(endpoint, region, cfg.Bucket)
	}

	return &S3Uploader{
		api:     client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// defaultPublicBaseURL はPublicBaseURL未指定時の公開URLベースを返す。
func defaultPublicBaseURL(endpoint, region, bucket string) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// Upload はファイルをfolder配下にアップロードし、公開URLを返す。
func (u *S3Uploader) Upload(ctx context.Context, folder string, f File) (string, error) {
	if f.Body == nil {
		return "", errors.New("empty upload body")
	}

	key := objectKey(folder, f.Name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f.Body,
	}
	if f.Size > 0 {
		input.ContentLength = aws.Int64(f.Size)
	}
	if f.ContentType != "" {
		input.ContentType = aws.String(f.ContentType)
	}

	if _, err := u.api.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("画像のアップロードに失敗しました: %w", err)
	}

	return u.baseURL + "/" + key, nil
}

// compile-time interface check
var _ Uploader = (*S3Uploader)(nil)
