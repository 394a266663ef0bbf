package email

type SMTPConfig struct {
	Host     string
	Port     int
	UserName string
	Password string
}

type Config struct {
	SMTP SMTPConfig
	// 发件人地址，为空时使用 SMTP 用户名
	From string
}

var globalConfig = Config{}

func Init(config *Config) {
	globalConfig = *config
}

/*
Configured 表示是否配置了 SMTP 服务器，未配置时不发送邮件。
*/
func Configured() bool {
	return len(globalConfig.SMTP.Host) != 0
}

func GenerateTestConfig() *Config {
	return &Config{
		SMTP: SMTPConfig{
			Host:     "localhost",
			Port:     1025,
			UserName: "ranker@localhost",
		},
		From: "ranker@localhost",
	}
}
