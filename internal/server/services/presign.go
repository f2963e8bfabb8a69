package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	sc "github.com/fieldops/shiftsync/internal/server/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Presigner hands out short-lived presigned S3 URLs for the two-step photo
// upload and for viewer downloads.
type Presigner struct {
	config *sc.Config
}

// NewPresigner returns a Presigner using the S3 settings from config.
func NewPresigner(config *sc.Config) *Presigner {
	return &Presigner{config: config}
}

// storageKey buckets photo binaries by date; paircode/photo id make the key
// stable across upload retries of the same photo.
func storageKey(pairCode, photoID string) string {
	d := time.Now()
	if photoID == "" {
		photoID = uuid.NewString()
	}
	return fmt.Sprintf("photos/%d/%d/%d/%s/%s", d.Year(), d.Month(), d.Day(), pairCode, photoID)
}

func (p *Presigner) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(p.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.config.S3RootUser,
			p.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// PresignedPutURL returns the storage key and a presigned PUT URL for one
// photo binary.
func (p *Presigner) PresignedPutURL(ctx context.Context, pairCode, photoID string) (string, string, error) {

	presignClient, err := p.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := p.config.S3Bucket
	key := storageKey(pairCode, photoID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))

	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// PresignedGetURL returns a presigned GET URL for a stored photo binary.
func (p *Presigner) PresignedGetURL(ctx context.Context, key string) (string, error) {

	presignClient, err := p.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := p.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
