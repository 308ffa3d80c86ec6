package blob

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"

	fsblob "gymcore/internal/infra/blob/fs"
	memblob "gymcore/internal/infra/blob/memory"
	s3blob "gymcore/internal/infra/blob/s3"
)

// Options selects and configures a blob backend. Fields map to the
// GYMCORE_BLOB_* environment variables.
type Options struct {
	Driver      string `env:"GYMCORE_BLOB_DRIVER" envDefault:"fs"`
	FSRoot      string `env:"GYMCORE_BLOB_FS_ROOT"`
	S3Bucket    string `env:"GYMCORE_BLOB_S3_BUCKET"`
	S3Region    string `env:"GYMCORE_BLOB_S3_REGION"`
	S3Endpoint  string `env:"GYMCORE_BLOB_S3_ENDPOINT"`
	S3PathStyle bool   `env:"GYMCORE_BLOB_S3_PATH_STYLE"`
}

// OptionsFromEnv parses Options from process environment.
func OptionsFromEnv() (Options, error) {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		return Options{}, fmt.Errorf("parse blob options: %w", err)
	}
	return opts, nil
}

// Open constructs the blob Store selected by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch Driver(opts.Driver) {
	case DriverFilesystem, "":
		return fsblob.New(opts.FSRoot)
	case DriverS3:
		return s3blob.New(ctx, s3blob.Config{
			Bucket:    opts.S3Bucket,
			Region:    opts.S3Region,
			Endpoint:  opts.S3Endpoint,
			PathStyle: opts.S3PathStyle,
		})
	case DriverMemory:
		return memblob.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", opts.Driver)
	}
}

// OpenFromEnv opens the blob store configured by GYMCORE_BLOB_* variables.
func OpenFromEnv(ctx context.Context) (Store, error) {
	opts, err := OptionsFromEnv()
	if err != nil {
		return nil, err
	}
	return Open(ctx, opts)
}
