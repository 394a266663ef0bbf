package fault

import (
	"errors"
	"fmt"
)

/*
Kind 标记一次失败属于哪一类，决定调用方是否可以重试。
*/
type Kind string

const (
	None                Kind = ""
	FetchFailed         Kind = "FetchFailed"         // 读取表格失败，可重新加载
	ParseFailed         Kind = "ParseFailed"         // 表头缺少必需的列，可重新加载
	NoEligibleData      Kind = "NoEligibleData"      // 所有句子都已标注完成，不是错误
	ValidationFailed    Kind = "ValidationFailed"    // 提交前校验未通过，不会发出请求
	PayloadShapeInvalid Kind = "PayloadShapeInvalid" // 排序不是候选列的排列
	RowNotFound         Kind = "RowNotFound"         // 提交时按 id 找不到行
	AllRoundsFilled     Kind = "AllRoundsFilled"     // 三轮都已被其他标注者填写
	VerificationFailed  Kind = "VerificationFailed"  // 写入后回读内容不一致
	TransportFailed     Kind = "TransportFailed"     // 请求写入端点失败，可整体重试
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, fault.New(kind, "")) 按 Kind 匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

/*
KindOf 取出错误链中第一个 *Error 的 Kind，没有时返回 None。
*/
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return None
}

/*
Retryable 表示在重新读取表格后再次尝试可能成功。
*/
func (k Kind) Retryable() bool {
	switch k {
	case FetchFailed, ParseFailed, TransportFailed, RowNotFound:
		return true
	default:
		return false
	}
}
