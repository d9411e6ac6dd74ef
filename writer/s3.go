package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

// S3Archiver uploads parquet exports of result tables under a date-partitioned
// key layout.
type S3Archiver struct {
	config   appconfig.S3Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewS3Archiver configures the AWS SDK and verifies credentials are usable.
func NewS3Archiver(ctx context.Context, cfg appconfig.S3Config) (*S3Archiver, error) {
	log := logger.GetLogger()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_archiver").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	archiver := &S3Archiver{
		config:   cfg,
		s3Client: s3.NewFromConfig(awsConfig),
		log:      log,
	}

	log.WithComponent("s3_archiver").WithFields(logger.Fields{
		"bucket": cfg.Bucket,
		"region": cfg.Region,
	}).Info("s3 archiver initialized")

	return archiver, nil
}

// Archive encodes the table to parquet and uploads it, returning the object
// key written.
func (a *S3Archiver) Archive(ctx context.Context, table models.ResultTable, runDate time.Time) (string, error) {
	if len(table) == 0 {
		return "", fmt.Errorf("nothing to archive")
	}

	data, err := EncodeParquet(table)
	if err != nil {
		return "", fmt.Errorf("encode parquet: %w", err)
	}

	key := a.objectKey(runDate)

	start := time.Now()
	if _, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	}); err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}

	log := a.log.WithComponent("s3_archiver")
	log.WithFields(logger.Fields{
		"s3_key":     key,
		"size_bytes": len(data),
		"rows":       len(table),
	}).Info("result table archived")
	log.LogMetric("s3_archiver", "rows_archived", int64(len(table)), "counter", nil)
	logger.LogPerformanceEntry(log, "s3_archiver", "archive", time.Since(start), logger.Fields{
		"size_bytes": len(data),
	})

	return key, nil
}

func (a *S3Archiver) objectKey(runDate time.Time) string {
	filename := fmt.Sprintf("oi_skew_%s_%s.parquet",
		runDate.Format("20060102"), uuid.NewString()[:8])
	return path.Join(
		a.config.Prefix,
		fmt.Sprintf("year=%04d", runDate.Year()),
		fmt.Sprintf("month=%02d", runDate.Month()),
		fmt.Sprintf("day=%02d", runDate.Day()),
		filename,
	)
}
