// Package storage issues presigned S3 URLs for photo binaries. The server
// never proxies the bytes; devices PUT them straight to object storage.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	sc "github.com/katlaang/pestscan-sub001/internal/server/config"
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

// Presigner hands out upload and download URLs for object keys.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (url string, expiresAt time.Time, err error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// S3Presigner presigns requests against an S3-compatible backend such as MinIO.
type S3Presigner struct {
	config *sc.Config
	now    func() time.Time
}

func NewS3Presigner(config *sc.Config) *S3Presigner {
	return &S3Presigner{config: config, now: time.Now}
}

// PhotoKey builds the object key a photo of a session is stored under.
func PhotoKey(farmID, sessionID string, at time.Time) string {
	d := at.UTC()
	return fmt.Sprintf("farms/%s/sessions/%s/%04d/%02d/%02d/%v",
		farmID, sessionID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (p *S3Presigner) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
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
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignPut returns a URL the device can PUT the object to and the moment
// the URL stops working.
func (p *S3Presigner) PresignPut(ctx context.Context, key string) (string, time.Time, error) {
	presignClient, err := p.getPresignClient(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	bucket := p.config.S3Bucket
	ttl := p.config.PresignTTL
	issued := p.now()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", time.Time{}, err
	}

	return req.URL, issued.Add(ttl), nil
}

// PresignGet returns a temporary download URL for key.
func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	presignClient, err := p.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := p.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(p.config.PresignTTL))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
