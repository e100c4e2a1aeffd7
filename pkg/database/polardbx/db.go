package polardbx

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// MysqlConfig 数据库连接配置
type MysqlConfig struct {
	Name     string `yaml:"name" json:"name" toml:"name"`
	User     string `yaml:"user" json:"user" toml:"user"`
	Password string `yaml:"password" json:"password" toml:"password"`
	Host     string `yaml:"host" json:"host" toml:"host"`
	Port     int    `yaml:"port" json:"port" toml:"port"`
	Database string `yaml:"database" json:"database" toml:"database"`

	Timeout time.Duration `yaml:"timeout" json:"timeout" toml:"timeout"` // connect timeout

	MaxPoolSize     int           `yaml:"max_pool_size" json:"max_pool_size" toml:"max_pool_size"`
	MaxIdleSize     int           `yaml:"max_idle_size" json:"max_idle_size" toml:"max_idle_size"`
	MaxIdleDuration time.Duration `yaml:"max_idle_ts" json:"max_idle_ts" toml:"max_idle_ts"`
	MaxLifetime     time.Duration `yaml:"max_lifetime" json:"max_lifetime" toml:"max_lifetime"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" json:"slow_threshold" toml:"slow_threshold"`
	SqlOpenDebug    bool          `yaml:"open_debug" json:"open_debug" toml:"open_debug"`
	LogLevel        string        `yaml:"log_level" json:"log_level" toml:"log_level"`

	// AutoMigrate 启动时按模型建表
	AutoMigrate bool `yaml:"auto_migrate" json:"auto_migrate" toml:"auto_migrate"`
}

func createDatabase(srcConf *MysqlConfig) (*gorm.DB, error) {
	cnf := validateConfig(srcConf)

	gormConfig := gorm.Config{
		Logger: NewMysqlLogger(
			logger.DefaultL1().Named("polardbx"),
			mappingLoggerLevel(cnf.LogLevel, cnf.SqlOpenDebug),
			cnf.SlowThreshold,
		),
	}

	db, err := gorm.Open(mysqlDriver.Open(getDsn(cnf)), &gormConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s:%d/%s", cnf.Host, cnf.Port, cnf.Database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cnf.Timeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	sqlDB.SetMaxOpenConns(cnf.MaxPoolSize)
	sqlDB.SetMaxIdleConns(cnf.MaxIdleSize)
	sqlDB.SetConnMaxIdleTime(cnf.MaxIdleDuration)
	sqlDB.SetConnMaxLifetime(cnf.MaxLifetime)
	return db, nil
}

func validateConfig(src *MysqlConfig) *MysqlConfig {
	dst := *src

	if dst.Port == 0 {
		dst.Port = 3306
	}
	if dst.Timeout == 0 {
		dst.Timeout = 5 * time.Second
	}
	if dst.MaxPoolSize == 0 {
		dst.MaxPoolSize = 20
	}
	if dst.MaxIdleSize == 0 {
		dst.MaxIdleSize = 10
	}
	if dst.MaxIdleDuration == 0 {
		dst.MaxIdleDuration = 10 * time.Minute
	}
	if dst.MaxLifetime == 0 {
		dst.MaxLifetime = 30 * time.Minute
	}
	if dst.SlowThreshold == 0 {
		dst.SlowThreshold = time.Second
	}
	return &dst
}

func getDsn(cnf *MysqlConfig) string {
	c := mysql.NewConfig()
	c.User = cnf.User
	c.Passwd = cnf.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cnf.Host, strconv.Itoa(cnf.Port))
	c.DBName = cnf.Database
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cnf.Timeout
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}
