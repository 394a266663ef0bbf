package sheetdb

import (
	"context"
	"fmt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/utils"
	"time"
)

type MySQLConfig struct {
	User     string
	Password string
	// host:port
	Host     string
	Database string
}

func (c *MySQLConfig) dsn() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Database)
}

/*
Config 是表格数据库的配置。

	MaxOpenConns/MaxIdleConns/ConnMaxLifetime 为 0 时使用 database/sql 的默认值；
	SlowThreshold 超过该耗时的 SQL 以 warn 等级记录；
	CheckMigration 为 true 时启动时建表；
	Sheets 启动时确保存在的表格名；
*/
type Config struct {
	MySQL           MySQLConfig
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	CheckMigration  bool
	Sheets          []string
}

func GenerateTestConfig() *Config {
	return &Config{
		MySQL: MySQLConfig{
			User:     "ranker_test",
			Password: "ranker_test",
			Host:     "localhost:3306",
			Database: "ranker_test",
		},
		MaxOpenConns:   8,
		SlowThreshold:  200 * time.Millisecond,
		CheckMigration: true,
	}
}

var db *gorm.DB

func CreateDatabase(config *Config) (*gorm.DB, error) {
	sqlLog := logger.New(&sqlLogger{logger: logging.NewLogger()}, logger.Config{
		SlowThreshold:             config.SlowThreshold,
		LogLevel:                  logger.Info,
		IgnoreRecordNotFoundError: true,
	})

	database, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               config.MySQL.dsn(),
		DefaultStringSize: 255,
	}), &gorm.Config{Logger: sqlLog})
	if err != nil {
		return nil, utils.WrapErrorf(err, "connect to mysql [%s] fail", config.MySQL.Host)
	}

	pool, err := database.DB()
	if err != nil {
		return nil, utils.WrapError(err, "get connection pool fail")
	}
	if config.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, utils.WrapError(err, "ping mysql fail")
	}

	if config.CheckMigration {
		if err := migration(database); err != nil {
			return nil, utils.WrapError(err, "migration fail")
		}
	}

	if err := ensureSheets(database, config.Sheets); err != nil {
		return nil, utils.WrapError(err, "ensure sheets fail")
	}

	return database, nil
}

func migration(db *gorm.DB) error {
	err := db.
		Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_0900_ai_ci").
		AutoMigrate(&Sheet{}, &SheetColumn{}, &SheetCell{})
	return utils.WrapError(err, "AutoMigrate fail")
}

// 表格不存在时创建一条空记录，已存在时保持不变
func ensureSheets(db *gorm.DB, names []string) error {
	for _, name := range names {
		sheet := Sheet{Name: name}
		if err := db.Where(Sheet{Name: name}).FirstOrCreate(&sheet).Error; err != nil {
			return utils.WrapErrorf(err, "first or create sheet [%s] fail", name)
		}
	}
	return nil
}

func Init(config *Config) {
	database, err := CreateDatabase(config)
	if err != nil {
		panic(err)
	}

	db = database
}

func DatabaseRaw() *gorm.DB {
	return db
}
