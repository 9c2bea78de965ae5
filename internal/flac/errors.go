// Package flac implements a push-driven, streaming FLAC block reader: the
// pipeline's hardest transformation primitive. It turns an
// arbitrarily-fragmented FLAC byte stream into a lazy sequence of typed
// blocks, enforcing the format's structural invariants as it goes.
package flac

import "fmt"

// DecodeErrorKind enumerates the ways a FLAC byte stream can fail to
// decode, kept granular rather than one opaque failure kind.
type DecodeErrorKind int

const (
	// DecodeBadMagicBytes means the stream did not open with "fLaC".
	DecodeBadMagicBytes DecodeErrorKind = iota
	// DecodeBadFirstBlock means the first metadata block was not STREAMINFO.
	DecodeBadFirstBlock
	// DecodeBadSyncBytes means the audio data did not open with a valid
	// frame sync sequence.
	DecodeBadSyncBytes
	// DecodeMalformedBlock means a block's raw bytes could not be parsed
	// per its declared type, or Finish was called outside the audio-data
	// state or with fewer than two buffered audio bytes.
	DecodeMalformedBlock
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeBadMagicBytes:
		return "BadMagicBytes"
	case DecodeBadFirstBlock:
		return "BadFirstBlock"
	case DecodeBadSyncBytes:
		return "BadSyncBytes"
	case DecodeMalformedBlock:
		return "MalformedBlock"
	default:
		return "Unknown"
	}
}

// DecodeError reports a structural or per-block decode failure.
type DecodeError struct {
	Kind    DecodeErrorKind
	Message string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("flac decode error: %s", e.Kind)
	}
	return fmt.Sprintf("flac decode error: %s: %s", e.Kind, e.Message)
}

func newDecodeError(kind DecodeErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ReaderError is produced by BlockReader.Push and BlockReader.Finish: either
// a DecodeError or an attempt to push/finish an already-finished reader.
type ReaderError struct {
	Decode          *DecodeError
	AlreadyFinished bool
}

func (e *ReaderError) Error() string {
	if e == nil {
		return ""
	}
	if e.AlreadyFinished {
		return "flac: block reader is already finished"
	}
	return e.Decode.Error()
}

// Unwrap exposes the wrapped DecodeError, if any, for errors.As.
func (e *ReaderError) Unwrap() error {
	if e == nil || e.Decode == nil {
		return nil
	}
	return e.Decode
}

func decodeErr(kind DecodeErrorKind, format string, args ...any) *ReaderError {
	return &ReaderError{Decode: newDecodeError(kind, format, args...)}
}

var errAlreadyFinished = &ReaderError{AlreadyFinished: true}
