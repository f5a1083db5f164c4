package mailscope

import "errors"

var (
	// ErrConflictingDataSource is returned when a dataset is
	// configured with both a file path and a remote URL.
	ErrConflictingDataSource = errors.New("mailscope: dataset cannot have both a file path and a remote URL")

	// ErrInvalidSMTPOptions is returned when WithSMTP is called but
	// HelloDomain or FromAddress is missing.
	ErrInvalidSMTPOptions = errors.New("mailscope: SMTPOptions requires HelloDomain and FromAddress")
)
