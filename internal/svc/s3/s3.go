package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/seventv/optipix/internal/instance"
)

type Options struct {
	Region      string
	Endpoint    string
	AccessToken string
	SecretKey   string
}

type s3Inst struct {
	downloader s3manageriface.DownloaderAPI
}

func New(opts Options) (instance.S3, error) {
	cfg := aws.NewConfig().
		WithRegion(opts.Region).
		WithS3ForcePathStyle(true)

	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}

	if opts.AccessToken != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(opts.AccessToken, opts.SecretKey, ""))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	return &s3Inst{
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

func (a *s3Inst) DownloadFile(ctx context.Context, w io.WriterAt, in *s3.GetObjectInput) (int64, error) {
	return a.downloader.DownloadWithContext(ctx, w, in)
}
