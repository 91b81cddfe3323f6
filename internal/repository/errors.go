package repository

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrSlotConflict = errors.New("appointment overlaps an existing booking")
	ErrDuplicate    = errors.New("duplicate record")
)
