package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching LoadError kinds with errors.Is.
var (
	// ErrParseFailure indicates the catalog text could not be deserialized
	ErrParseFailure = errors.New("catalog parse failure")

	// ErrTransferFailure indicates the catalog bytes could not be obtained
	ErrTransferFailure = errors.New("catalog transfer failure")

	// ErrNoSource is returned by Reload when no source is configured
	ErrNoSource = errors.New("no catalog source configured")
)

// LoadErrorKind classifies a LoadError.
type LoadErrorKind int

const (
	ParseFailure LoadErrorKind = iota + 1
	TransferFailure
)

func (k LoadErrorKind) String() string {
	switch k {
	case ParseFailure:
		return "parse failure"
	case TransferFailure:
		return "transfer failure"
	default:
		return "unknown"
	}
}

// LoadError reports a failed catalog load. It is always recoverable.
type LoadError struct {
	Kind   LoadErrorKind
	Source string // Describes the source that failed (URL, path or asset name)
	Msg    string
	Err    error
}

func (e *LoadError) Error() string {
	s := fmt.Sprintf("load catalog from %s: %s", e.Source, e.Kind)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrParseFailure and ErrTransferFailure.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrParseFailure:
		return e.Kind == ParseFailure
	case ErrTransferFailure:
		return e.Kind == TransferFailure
	}
	return false
}

func parseError(source, msg string, err error) *LoadError {
	return &LoadError{Kind: ParseFailure, Source: source, Msg: msg, Err: err}
}

func transferError(source string, err error) *LoadError {
	return &LoadError{Kind: TransferFailure, Source: source, Err: err}
}
