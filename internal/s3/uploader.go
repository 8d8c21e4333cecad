// server/internal/s3/uploader.go
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gps-fleet-api-server/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Uploader struct {
	Client           *s3.Client
	presigner        *s3.PresignClient
	Bucket           string
	Region           string
	CloudFrontDomain string
	AudioPrefix      string
	PresignTTL       time.Duration
}

func NewUploader(ctx context.Context, cfg config.S3Config) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig)

	return &Uploader{
		Client:           s3Client,
		presigner:        s3.NewPresignClient(s3Client),
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		CloudFrontDomain: cfg.CloudFrontDomain,
		AudioPrefix:      strings.Trim(cfg.AudioPrefix, "/"),
		PresignTTL:       cfg.PresignTTL,
	}, nil
}

// UploadFile uploads a file to S3 and returns its URL.
func (u *Uploader) UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error) {
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return u.PublicURL(objectKey), nil
}

// PublicURL prefers the CloudFront domain and falls back to the bucket's S3 URL.
func (u *Uploader) PublicURL(objectKey string) string {
	if u.CloudFrontDomain != "" {
		return fmt.Sprintf("https://%s/%s", u.CloudFrontDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, objectKey)
}

// AudioKey is the object key of a vehicle's cabin audio clip.
func (u *Uploader) AudioKey(vehicleID uint) string {
	key := fmt.Sprintf("vehicle_%d.mp3", vehicleID)
	if u.AudioPrefix == "" {
		return key
	}
	return u.AudioPrefix + "/" + key
}

// AudioURL returns a time-limited GET link to the vehicle's audio clip.
func (u *Uploader) AudioURL(ctx context.Context, vehicleID uint) (string, error) {
	ttl := u.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(u.AudioKey(vehicleID)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign audio url: %w", err)
	}
	return req.URL, nil
}

// ArchiveKey names a history export object; every call yields a fresh key.
func ArchiveKey(vehicleID uint, ext string) string {
	return fmt.Sprintf("exports/vehicle_%d/%s.%s", vehicleID, uuid.NewString(), ext)
}
