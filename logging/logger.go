package logging

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	lock          sync.Mutex
	defaultLogger *logrus.Logger
	files         = make(map[string]*os.File)
)

/*
levelHook 把不低于 level 的日志写入 writer，控制台和文件各挂一个。
*/
type levelHook struct {
	writer    io.Writer
	level     logrus.Level
	formatter logrus.Formatter
}

func (h *levelHook) Levels() []logrus.Level {
	ret := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, lv := range logrus.AllLevels {
		if lv <= h.level {
			ret = append(ret, lv)
		}
	}
	return ret
}

func (h *levelHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = h.writer.Write(line)
	return err
}

// 同一天的日志写入同一个文件，多个 logger 共享文件句柄
func openLogFile(dir string) (*os.File, error) {
	name := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))

	if f, ok := files[name]; ok {
		return f, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	files[name] = f
	return f, nil
}

func newLogger(config *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	logger.SetReportCaller(true)

	maxLevel := logrus.PanicLevel

	if !config.DisableConsole {
		logger.AddHook(&levelHook{
			writer:    os.Stdout,
			level:     config.ConsoleLevel,
			formatter: &logrus.TextFormatter{FullTimestamp: true},
		})
		if config.ConsoleLevel > maxLevel {
			maxLevel = config.ConsoleLevel
		}
	}

	if len(config.FileDir) != 0 {
		f, err := openLogFile(config.FileDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file in [%s] fail: %v\n", config.FileDir, err)
		} else {
			logger.AddHook(&levelHook{
				writer:    f,
				level:     config.FileLevel,
				formatter: &logrus.JSONFormatter{},
			})
			if config.FileLevel > maxLevel {
				maxLevel = config.FileLevel
			}
		}
	}

	logger.SetLevel(maxLevel)
	return logger
}

/*
NewLogger 按照默认配置创建一个新的 logger。
*/
func NewLogger() *logrus.Logger {
	lock.Lock()
	defer lock.Unlock()

	return newLogger(&defaultConfig)
}

/*
Default 返回共享的默认 logger。
*/
func Default() *logrus.Logger {
	lock.Lock()
	defer lock.Unlock()

	if defaultLogger == nil {
		defaultLogger = newLogger(&defaultConfig)
	}

	return defaultLogger
}
