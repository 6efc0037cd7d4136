package service

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotParticipant  = errors.New("not a participant")
)
