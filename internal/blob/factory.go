package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects a Store implementation from environment variables:
//
//	CANVASCORE_BLOB_DRIVER:  fs|s3|memory (default fs)
//	CANVASCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 variables documented in s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("CANVASCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("CANVASCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// Compile-time backend checks.
var (
	_ Store = (*FilesystemStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*S3Store)(nil)
)
