package tblog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorruptRecord indicates a record whose length or payload checksum
// does not match.
var ErrCorruptRecord = errors.New("corrupt event record")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskedCRC is the TFRecord checksum: a rotated and offset CRC-32C.
func maskedCRC(data []byte) uint32 {
	crc := crc32.Checksum(data, castagnoli)
	return ((crc >> 15) | (crc << 17)) + 0xa282ead8
}

// writeRecord frames data as
//
//	uint64 length | uint32 masked_crc(length) | data | uint32 masked_crc(data)
//
// with every integer little-endian.
func writeRecord(w io.Writer, data []byte) error {
	header := make([]byte, 12)
	binary.LittleEndian.PutUint64(header[:8], uint64(len(data)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))

	footer := make([]byte, 4)
	binary.LittleEndian.PutUint32(footer, maskedCRC(data))

	for _, chunk := range [][]byte{header, data, footer} {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// readRecord reads one framed record. It returns io.EOF at a clean end of
// stream.
func readRecord(r io.Reader) ([]byte, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrCorruptRecord)
		}
		return nil, err
	}
	if binary.LittleEndian.Uint32(header[8:]) != maskedCRC(header[:8]) {
		return nil, fmt.Errorf("%w: length checksum", ErrCorruptRecord)
	}

	n := binary.LittleEndian.Uint64(header[:8])
	data := make([]byte, n+4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: truncated payload: %w", ErrCorruptRecord, err)
	}
	payload, footer := data[:n], data[n:]
	if binary.LittleEndian.Uint32(footer) != maskedCRC(payload) {
		return nil, fmt.Errorf("%w: payload checksum", ErrCorruptRecord)
	}
	return payload, nil
}
