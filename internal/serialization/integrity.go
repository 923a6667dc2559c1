package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ChecksumKey is the metadata entry holding the hex SHA-256 of the tensor
// data section. Files without it are accepted unverified.
const ChecksumKey = "payload_sha256"

// Limits applied while decoding.
const (
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// Integrity errors.
var (
	ErrChecksumMismatch  = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap     = errors.New("tensor offsets overlap")
	ErrOutOfBounds       = errors.New("tensor extends beyond data section")
	ErrTooManyTensors    = errors.New("too many tensors in file")
	ErrInvalidTensorName = errors.New("invalid tensor name")
)

// ComputeChecksum returns the hex SHA-256 of data.
func ComputeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verifyChecksum compares payload against the checksum recorded in metadata.
func verifyChecksum(metadata map[string]string, payload []byte) error {
	want, ok := metadata[ChecksumKey]
	if !ok {
		return nil
	}
	if got := ComputeChecksum(payload); got != want {
		return fmt.Errorf("%w: got %s, header records %s", ErrChecksumMismatch, got, want)
	}
	return nil
}

// validateTensorName rejects names that are empty, oversized, reserved,
// or look like paths.
func validateTensorName(name string) error {
	switch {
	case name == "" || len(name) > MaxTensorNameLen:
		return fmt.Errorf("%w: length %d", ErrInvalidTensorName, len(name))
	case name == metadataKey:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidTensorName, name)
	case strings.Contains(name, ".."), strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidTensorName, name)
	}
	return nil
}

type span struct {
	name       string
	start, end int64
}

// validateOffsets checks that tensor byte ranges lie inside the data section
// and do not overlap.
func validateOffsets(spans []span, dataSize int64) error {
	if len(spans) > MaxTensorCount {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(spans), MaxTensorCount)
	}

	sorted := append([]span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	for i, s := range sorted {
		if s.start < 0 || s.end < s.start || s.end > dataSize {
			return fmt.Errorf("%w: tensor %s [%d, %d) with %d data bytes", ErrOutOfBounds, s.name, s.start, s.end, dataSize)
		}
		if i+1 < len(sorted) && s.end > sorted[i+1].start {
			return fmt.Errorf("%w: %s and %s", ErrOffsetOverlap, s.name, sorted[i+1].name)
		}
	}
	return nil
}
