package stores

import (
	"garment-studio/config"
	"garment-studio/core"
	"garment-studio/stores/aws"
	"garment-studio/stores/filesystem"
	"garment-studio/stores/memory"
	"garment-studio/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore picks the design store named by STORAGE_TYPE.
func GetStore(cfg *config.Config) core.DesignStore {
	var store core.DesignStore

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "filesystem":
		storageField["basePath"] = cfg.LocalStoragePath
		store = filesystem.NewDesignStore(cfg.LocalStoragePath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store = sqlite.NewDesignStore(cfg.DataSourceName)
	case "s3":
		if cfg.S3BucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3BucketName
		store = aws.NewDesignStore(cfg.S3BucketName)
	default:
		store = memory.NewDesignStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
