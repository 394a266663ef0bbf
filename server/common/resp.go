package common

/*
Resp 是除写入端点外所有接口的响应格式。

	Code 为 0 表示成功；
	Msg 错误说明；
	Data 成功时的数据；
*/
type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

const (
	CodeSuccess         = 0
	CodeUnknownError    = 1
	CodeBadRequest      = 2
	CodeNotFound        = 3
	CodeConflict        = 4
	CodeValidation      = 5
	CodeUpstreamFailure = 6
	CodeUnauthorized    = 7
	CodeNotSupported    = 8
)

func MakeSuccessResp(data interface{}) *Resp {
	return &Resp{
		Code: CodeSuccess,
		Msg:  "success",
		Data: data,
	}
}

func MakeUnknownErrorResp() *Resp {
	return &Resp{
		Code: CodeUnknownError,
		Msg:  "unknown error",
	}
}

func MakeErrorResp(code int, msg string) *Resp {
	return &Resp{
		Code: code,
		Msg:  msg,
	}
}
