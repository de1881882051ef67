package instance

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/service/s3"
)

type S3 interface {
	DownloadFile(ctx context.Context, w io.WriterAt, in *s3.GetObjectInput) (int64, error)
}
