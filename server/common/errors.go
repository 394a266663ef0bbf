package common

import (
	"errors"
)

var (
	ErrContentTypeNotMultipartFormData = errors.New("content type is not multipart/form-data")
	ErrRequestParamEmpty               = errors.New("request param is empty")
	ErrUnsupportedFileType             = errors.New("unsupported file type")
	ErrImportNotSupported              = errors.New("sheet backend does not support import")
)
