package config

const (
	EnvKeyDebug      = "RANKER_DEBUG"
	EnvKeyServerHost = "RANKER_HOST"
	EnvKeyServerPort = "RANKER_PORT"
	EnvKeyAdminKey   = "RANKER_ADMIN_KEY"
	EnvKeyLogDir     = "RANKER_LOG_DIR"

	EnvKeySheetBackend   = "SHEET_BACKEND"
	EnvKeySheetName      = "SHEET_NAME"
	EnvKeySheetXLSXPath  = "SHEET_XLSX_PATH"
	EnvKeySheetMinID     = "SHEET_MIN_ID"
	EnvKeySheetMaxID     = "SHEET_MAX_ID"
	EnvKeySheetKeys      = "SHEET_CANDIDATE_KEYS"
	EnvKeySheetBatchSize = "SHEET_BATCH_SIZE"

	EnvKeyMySQLUser         = "MYSQL_USER"
	EnvKeyMySQLPassword     = "MYSQL_PASSWORD"
	EnvKeyMySQLHost         = "MYSQL_HOST"
	EnvKeyMySQLDatabase     = "MYSQL_DATABASE"
	EnvKeyMySQLMaxOpenConns = "MYSQL_MAX_OPEN_CONNS"

	EnvKeyCommitTimeout  = "COMMIT_TIMEOUT"
	EnvKeyCommitEndpoint = "COMMIT_ENDPOINT"
	EnvKeySessionTTL     = "SESSION_TTL"
	EnvKeyLeaseTTL       = "LEASE_TTL"

	EnvKeyRedisAddr     = "REDIS_ADDR"
	EnvKeyRedisPassword = "REDIS_PASSWORD"

	EnvKeyRabbitMQUser = "RABBITMQ_USER"
	EnvKeyRabbitMQPwd  = "RABBITMQ_PASSWORD"
	EnvKeyRabbitMQHost = "RABBITMQ_HOST"
	EnvKeyRabbitMQPort = "RABBITMQ_PORT"
	// 为 true 时本进程消费提交事件并写审计日志
	EnvKeyRabbitMQAudit = "RABBITMQ_AUDIT"

	EnvKeyEmailFrom         = "EMAIL_FROM"
	EnvKeyEmailSMTPHost     = "EMAIL_SMTP_HOST"
	EnvKeyEmailSMTPPort     = "EMAIL_SMTP_PORT"
	EnvKeyEmailSMTPUserName = "EMAIL_SMTP_USERNAME"
	EnvKeyEmailSMTPPassword = "EMAIL_SMTP_PASSWORD"
	EnvKeyOperatorEmail     = "OPERATOR_EMAIL"

	EnvKeyS3Bucket   = "S3_BUCKET"
	EnvKeyS3Region   = "S3_REGION"
	EnvKeyS3Endpoint = "S3_ENDPOINT"
	EnvKeyS3Prefix   = "S3_PREFIX"
)
