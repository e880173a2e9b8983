package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrModuleNotFound      = errors.New("module not found")
	ErrModuleLocked        = errors.New("module not yet unlocked")
	ErrProgressNotFound    = errors.New("progress not found")
	ErrAttemptLimit        = errors.New("attempt limit reached for this module")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrTrainingIncomplete  = errors.New("training not completed")
)
