package domain

import "errors"

var (
	ErrInvalidParameters      = errors.New("invalid parameters")
	ErrDeviceUnavailable      = errors.New("device unavailable")
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrUnsupportedParameters  = errors.New("unsupported conversion parameters")
	ErrBufferFormat           = errors.New("buffer format error")
	ErrChannelCountExceeded   = errors.New("channel count exceeds max planes")
	ErrSessionDisposed        = errors.New("capture session disposed")
	ErrUnknownSource          = errors.New("unknown source")
)
