package model

import "errors"

// Errors shared by record store implementations.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")
)
