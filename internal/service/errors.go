package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid      = errors.New("参数错误")
	ErrUserNotFound      = errors.New("用户不存在")
	ErrUserExist         = errors.New("用户已存在")
	ErrPasswordIncorrect = errors.New("密码错误")
	ErrRoomNotFound      = errors.New("房间不存在")
	ErrRoomConflict      = errors.New("房间已被创建")
	ErrNotRoomMember     = errors.New("不是房间成员")
	ErrMessageEmpty      = errors.New("消息内容不能为空")
	UnauthorizedError    = errors.New("权限不足")
	UnExpectedError      = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:      BadRequest,
	ErrUserNotFound:      NotFound,
	ErrUserExist:         BadRequest,
	ErrPasswordIncorrect: Unauthorized,
	ErrRoomNotFound:      NotFound,
	ErrRoomConflict:      Conflict,
	ErrNotRoomMember:     Unauthorized,
	ErrMessageEmpty:      BadRequest,
	UnauthorizedError:    Unauthorized,
	UnExpectedError:      InternalServerError,
}
