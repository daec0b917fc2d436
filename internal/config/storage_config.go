package config

import "path/filepath"

type StorageDriver string

const (
	StorageMemory StorageDriver = "memory"
	StorageSQLite StorageDriver = "sqlite"
	StorageRedis  StorageDriver = "redis"
)

type StorageConfig interface {
	GetStorageDriver() StorageDriver
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
	GetStoragePassphrase() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageDriver() StorageDriver {
	return StorageDriver(GetEnv("STORAGE_DRIVER", string(StorageSQLite)))
}

func (Storage) GetSQLitePath() string {
	return GetEnv("SQLITE_PATH", filepath.Join(EnvVars{}.GetDataFolder(), "portal.db"))
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "portal:")
}

// GetStoragePassphrase enables at-rest encryption of stored values when set
func (Storage) GetStoragePassphrase() string {
	return GetEnv("STORAGE_PASSPHRASE", "")
}
