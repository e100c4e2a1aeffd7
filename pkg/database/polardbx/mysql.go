package polardbx

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	cnf "github.com/ninja0404/meme-sniper/pkg/config"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

const (
	DEFAULT_DB     = "default"
	DEFAULT_CONFIG = "polarx"
)

var (
	mu  sync.RWMutex
	dbs = make(map[string]*gorm.DB)
)

// SetupDatabaseFromDefaultConfig 读取 polarx 配置段建立默认连接，开启 auto_migrate 时为 models 建表
func SetupDatabaseFromDefaultConfig(models ...interface{}) error {
	return SetupDatabase(DEFAULT_DB, DEFAULT_CONFIG, models...)
}

// SetupDatabase 按配置段建立命名连接
func SetupDatabase(name string, configKey string, models ...interface{}) error {
	var config MysqlConfig
	if err := cnf.Get(configKey).Scan(&config); err != nil {
		return errors.Wrapf(err, "scan %s config", configKey)
	}
	db, err := createDatabase(&config)
	if err != nil {
		return err
	}

	if config.AutoMigrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return errors.Wrap(err, "auto migrate")
		}
		logger.Info("🧱 数据表已同步", logger.String("name", name), logger.Int("models", len(models)))
	}

	mu.Lock()
	dbs[name] = db
	mu.Unlock()

	logger.Info("📊 mysql database connected",
		logger.String("name", name),
		logger.String("host", config.Host),
		logger.Int("port", config.Port),
		logger.String("database", config.Database))
	return nil
}

// Stop 关闭所有连接
func Stop() error {
	mu.Lock()
	defer mu.Unlock()

	var merr error
	for name, db := range dbs {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "close %s", name))
			continue
		}
		logger.Info("mysql database closed", logger.String("name", name))
	}
	dbs = make(map[string]*gorm.DB)
	return merr
}

func GetDb() (*gorm.DB, error) {
	return GetDbWithName(DEFAULT_DB)
}

func GetDbWithName(name string) (*gorm.DB, error) {
	mu.RLock()
	defer mu.RUnlock()

	db, ok := dbs[name]
	if !ok {
		return nil, errors.Errorf("database %s is not initialized", name)
	}
	return db, nil
}
