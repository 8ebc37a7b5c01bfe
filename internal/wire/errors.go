package wire

import "errors"

// Error taxonomy per spec §7. FramingError, DecodeError, and
// UnknownTypeId are all fatal for the owning connection; the caller is
// expected to close the socket and run its shutdown path on any of them.
var (
	// ErrHeaderSize is returned when a serialized CommonHeader would not be
	// exactly CommonHeaderSize bytes — a bug in the encoder, never expected
	// in normal operation.
	ErrHeaderSize = errors.New("wire: common header is not 53 bytes")

	// ErrFrameTooLarge is returned by Encode, Codec.Feed, or Codec.Next when
	// a payload, the buffered bytes, or a header's length would exceed
	// MaxFrameSize.
	ErrFrameTooLarge = errors.New("wire: frame exceeds 8MiB limit")

	// ErrChecksumMismatch is returned by Codec.Next when the recomputed CRC-32
	// over the payload bytes does not match the header's crc32 field.
	ErrChecksumMismatch = errors.New("wire: crc32 checksum mismatch")

	// ErrUnknownTypeID is returned by Codec.Next for any type_id outside {1..6}.
	ErrUnknownTypeID = errors.New("wire: unknown type_id")

	// ErrFieldOverflow is returned by Encode when length, crc32, or type_id
	// cannot be represented in their fixed-width decimal field.
	ErrFieldOverflow = errors.New("wire: header field does not fit its fixed width")
)
