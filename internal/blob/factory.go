package blob

import (
	"context"
	"fmt"
)

// Config selects and parameterises a driver.
type Config struct {
	Driver Driver
	// Root is the project data directory for the filesystem driver.
	Root string
	S3   S3Config
}

// Open returns the Store cfg selects. An empty driver means the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		if cfg.S3.Bucket == "" {
			return OpenFromEnv(ctx)
		}
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
