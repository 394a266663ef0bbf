package utils

import "fmt"

/*
WrapError 为 err 附加上下文信息，err 为 nil 时返回 nil，以便直接用于 return 语句。
*/
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", msg, err)
}

/*
WrapErrorf 同 WrapError，但上下文信息支持格式化。
*/
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
