package leasestore

import (
	"errors"
)

var ErrEmptyOwner = errors.New("lease owner is empty")

type Config struct {
	// Redis 地址，形如 localhost:6379，为空时使用进程内存储
	Addr     string
	Password string
	DB       int
	// 键前缀，同一个 Redis 上部署多套系统时区分
	Prefix string
}

func GenerateTestConfig() *Config {
	return &Config{
		Addr:   "localhost:6379",
		Prefix: "ranker:test:lease:",
	}
}
