package logging

import (
	"github.com/sirupsen/logrus"
	"testing"
)

/*
Config 描述日志的输出方式。

	FileLevel 写入文件的最低日志等级；
	ConsoleLevel 输出到控制台的最低日志等级；
	FileDir 日志文件所在目录，为空时不写文件；
	DisableConsole 为 true 时不输出到控制台；
*/
type Config struct {
	FileLevel      logrus.Level
	ConsoleLevel   logrus.Level
	FileDir        string
	DisableConsole bool
}

var defaultConfig = Config{
	FileLevel:      logrus.DebugLevel,
	ConsoleLevel:   logrus.InfoLevel,
	FileDir:        "",
	DisableConsole: false,
}

func SetDefaultConfig(config *Config) {
	lock.Lock()
	defer lock.Unlock()

	defaultConfig = *config
	defaultLogger = nil
}

func GenerateTestConfig(t *testing.T) *Config {
	return &Config{
		FileLevel:      logrus.DebugLevel,
		ConsoleLevel:   logrus.DebugLevel,
		FileDir:        t.TempDir(),
		DisableConsole: false,
	}
}
