package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")

	// File & Directory Errors
	ErrFileNotFound    = errors.New("file not found")
	ErrFileReadError   = errors.New("error reading file")
	ErrFileWriteError  = errors.New("error writing to file")
	ErrDirNotFound     = errors.New("directory not found")
	ErrDirCreateError  = errors.New("error creating directory")
	ErrUnsupportedFile = errors.New("unsupported file format")

	// Compression Errors
	ErrCompressionFailed = errors.New("compression failed")
	ErrInvalidArchive    = errors.New("archive file is corrupted or unsupported")

	// Configuration Errors
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigParseError   = errors.New("error parsing configuration")

	// Generation Errors
	ErrEmitFailed        = errors.New("emitter failed to render target")
	ErrUnsupportedTarget = errors.New("combination not supported by target")
)
