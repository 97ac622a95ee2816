package repository

import "errors"

var (
	ErrElementNotFound    = errors.New("element not found")
	ErrSessionUnavailable = errors.New("interactive session could not be established")
	ErrJobNotFound        = errors.New("scrape job not found")
)
