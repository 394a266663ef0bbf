package main

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"rank-annotation-backend/config"
	"rank-annotation-backend/domain/assign"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/domain/session"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/metrics"
	"rank-annotation-backend/repository/eventbus"
	"rank-annotation-backend/repository/leasestore"
	"rank-annotation-backend/repository/sheetdb"
	"rank-annotation-backend/repository/snapshot"
	"rank-annotation-backend/repository/tablestore"
	"rank-annotation-backend/repository/xlsxsheet"
	"rank-annotation-backend/server"
	"rank-annotation-backend/server/handler"
	"rank-annotation-backend/utils/email"
	"time"
)

var DEBUG bool

func loggingConf() *logging.Config {
	consoleLevel := logrus.InfoLevel
	if DEBUG {
		consoleLevel = logrus.DebugLevel
	}

	return &logging.Config{
		FileLevel:      logrus.DebugLevel,
		ConsoleLevel:   consoleLevel,
		FileDir:        config.GetEnv(config.EnvKeyLogDir, "logs"),
		DisableConsole: false,
	}
}

func emailConf() *email.Config {
	return &email.Config{
		SMTP: email.SMTPConfig{
			Host:     config.GetEnv(config.EnvKeyEmailSMTPHost, ""),
			Port:     config.GetIntEnv(config.EnvKeyEmailSMTPPort, 25),
			UserName: config.GetEnv(config.EnvKeyEmailSMTPUserName, ""),
			Password: config.GetEnv(config.EnvKeyEmailSMTPPassword, ""),
		},
		From: config.GetEnv(config.EnvKeyEmailFrom, ""),
	}
}

func sheetConf() *sheet.Config {
	def := sheet.DefaultConfig()
	return &sheet.Config{
		CandidateKeys: config.GetListEnv(config.EnvKeySheetKeys, def.CandidateKeys),
		MinID:         config.GetIntEnv(config.EnvKeySheetMinID, def.MinID),
		MaxID:         config.GetIntEnv(config.EnvKeySheetMaxID, def.MaxID),
	}
}

func assignConf(sheetConfig *sheet.Config) *assign.Config {
	return &assign.Config{
		Sheet:     sheetConfig,
		BatchSize: config.GetIntEnv(config.EnvKeySheetBatchSize, assign.DefaultBatchSize),
		LeaseTTL:  config.GetDurationEnv(config.EnvKeyLeaseTTL, 30*time.Minute),
	}
}

func commitConf(sheetConfig *sheet.Config) *commit.Config {
	return &commit.Config{
		Sheet:   sheetConfig,
		Timeout: config.GetDurationEnv(config.EnvKeyCommitTimeout, 15*time.Second),
	}
}

func sheetdbConf(sheetName string) *sheetdb.Config {
	if DEBUG {
		conf := sheetdb.GenerateTestConfig()
		conf.Sheets = []string{sheetName}
		return conf
	}

	return &sheetdb.Config{
		MySQL: sheetdb.MySQLConfig{
			User:     config.GetEnv(config.EnvKeyMySQLUser, ""),
			Password: config.GetEnv(config.EnvKeyMySQLPassword, ""),
			Host:     config.GetEnv(config.EnvKeyMySQLHost, "localhost:3306"),
			Database: config.GetEnv(config.EnvKeyMySQLDatabase, ""),
		},
		MaxOpenConns:    config.GetIntEnv(config.EnvKeyMySQLMaxOpenConns, 16),
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   500 * time.Millisecond,
		CheckMigration:  true,
		Sheets:          []string{sheetName},
	}
}

func leasestoreConf() *leasestore.Config {
	return &leasestore.Config{
		Addr:     config.GetEnv(config.EnvKeyRedisAddr, ""),
		Password: config.GetEnv(config.EnvKeyRedisPassword, ""),
		Prefix:   "ranker:lease:",
	}
}

func eventbusConf() *eventbus.Config {
	if DEBUG {
		return &eventbus.Config{
			RabbitMQConfig: eventbus.GenerateTestMQConnectionConfig(),
			Audit:          true,
		}
	}

	return &eventbus.Config{
		RabbitMQConfig: eventbus.MQConnectionConfig{
			User: config.GetEnv(config.EnvKeyRabbitMQUser, "guest"),
			Pwd:  config.GetEnv(config.EnvKeyRabbitMQPwd, "guest"),
			Host: config.GetEnv(config.EnvKeyRabbitMQHost, ""),
			Port: config.GetIntEnv(config.EnvKeyRabbitMQPort, 5672),
		},
		Audit: config.GetBoolEnv(config.EnvKeyRabbitMQAudit, false),
	}
}

func snapshotConf() *snapshot.Config {
	return &snapshot.Config{
		Bucket:   config.GetEnv(config.EnvKeyS3Bucket, ""),
		Region:   config.GetEnv(config.EnvKeyS3Region, "us-east-1"),
		Endpoint: config.GetEnv(config.EnvKeyS3Endpoint, ""),
		Prefix:   config.GetEnv(config.EnvKeyS3Prefix, "snapshots/"),
	}
}

func demoIDs() []string {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i)
	}
	return ids
}

/*
openStore 按 SHEET_BACKEND 选择表格存储：memory、mysql 或 xlsx。
*/
func openStore(sheetConfig *sheet.Config) (tablestore.Store, error) {
	backend := config.GetEnv(config.EnvKeySheetBackend, "memory")
	switch backend {
	case "mysql":
		name := config.GetEnv(config.EnvKeySheetName, "default")
		sheetdb.Init(sheetdbConf(name))
		return sheetdb.NewStore(sheetdb.DatabaseRaw(), name), nil
	case "xlsx":
		return xlsxsheet.Open(&xlsxsheet.Config{
			Path:  config.GetEnv(config.EnvKeySheetXLSXPath, "sheet.xlsx"),
			Sheet: config.GetEnv(config.EnvKeySheetName, ""),
		})
	case "memory":
		if DEBUG {
			return tablestore.NewMemory(sheet.DemoTable(sheetConfig, demoIDs()...)), nil
		}
		return tablestore.NewMemory(sheet.DemoTable(sheetConfig)), nil
	}

	return nil, fmt.Errorf("unknown sheet backend [%s]", backend)
}

func openLeaser(ctx context.Context, logger *logrus.Logger) assign.Leaser {
	cfg := leasestoreConf()
	if len(cfg.Addr) == 0 {
		return leasestore.NewMemory()
	}

	r, err := leasestore.NewRedis(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warnf("redis unavailable, using in-process leases")
		return leasestore.NewMemory()
	}
	return r
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	DEBUG = config.GetBoolEnv(config.EnvKeyDebug, false)

	logging.SetDefaultConfig(loggingConf())
	logger := logging.NewLogger()

	email.Init(emailConf())
	metrics.Init()

	ctx := context.Background()
	sheetConfig := sheetConf()

	store, err := openStore(sheetConfig)
	if err != nil {
		panic(err)
	}

	leaser := openLeaser(ctx, logger)
	loader := assign.NewLoader(store, leaser, assignConf(sheetConfig), nil)

	coordinator := commit.NewCoordinator(store, commitConf(sheetConfig))
	if cfg := eventbusConf(); len(cfg.RabbitMQConfig.Host) != 0 {
		bus, err := eventbus.New(cfg)
		if err != nil {
			logger.WithError(err).Warnf("rabbitmq unavailable, commit events disabled")
		} else {
			defer bus.Close()
			coordinator.WithPublisher(bus)
		}
	}
	if operator := config.GetEnv(config.EnvKeyOperatorEmail, ""); len(operator) != 0 && email.Configured() {
		coordinator.WithAlerter(commit.NewEmailAlerter(operator))
	}

	var committer commit.Committer = coordinator
	if endpoint := config.GetEnv(config.EnvKeyCommitEndpoint, ""); len(endpoint) != 0 {
		logger.Infof("sessions commit through remote endpoint [%s]", endpoint)
		committer = commit.NewClient(endpoint, config.GetDurationEnv(config.EnvKeyCommitTimeout, 15*time.Second))
	}

	registry := session.NewRegistry(loader, committer, config.GetDurationEnv(config.EnvKeySessionTTL, 2*time.Hour))
	registry.StartSweeper(time.Minute)
	defer registry.Stop()

	var archiver handler.Archiver
	if cfg := snapshotConf(); len(cfg.Bucket) != 0 {
		a, err := snapshot.New(ctx, cfg)
		if err != nil {
			logger.WithError(err).Warnf("s3 unavailable, snapshots disabled")
		} else {
			archiver = a
		}
	}

	handler.Init(&handler.Config{
		Registry:    registry,
		Loader:      loader,
		Coordinator: coordinator,
		Store:       store,
		Archiver:    archiver,
		Sheet:       sheetConfig,
	})

	s := server.New(&server.Config{
		Host:      config.GetEnv(config.EnvKeyServerHost, ""),
		Port:      config.GetIntEnv(config.EnvKeyServerPort, 8003),
		DebugMode: DEBUG,
		AdminKey:  config.GetEnv(config.EnvKeyAdminKey, ""),
	})
	err = s.RunServer()
	if err != nil {
		logger.WithError(err).Errorf("run server error=\n%v", err)
	}
}
