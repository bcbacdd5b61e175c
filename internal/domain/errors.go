package domain

import "errors"

var (
	ErrConfigNotFound = errors.New("config not found")
	ErrEmoteNotFound  = errors.New("emote not found")
)
