package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrProfileNotFound    = errors.New("student profile not found")
	ErrProfileExists      = errors.New("student profile already exists")
	ErrPlanNotFound       = errors.New("learning plan not found")
	ErrActivityNotFound   = errors.New("learning activity not found")
	ErrContentNotFound    = errors.New("content not found")
	ErrInvalidStatus      = errors.New("invalid activity status")
	ErrNothingToAdapt     = errors.New("no completed activities to adapt from")
)
