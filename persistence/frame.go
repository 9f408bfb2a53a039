package persistence

import (
	"encoding/binary"
	"fmt"
)

const (
	frameMagic      = "VSP1"
	frameVersion    = 1
	frameHeaderSize = 28

	// maxRawLength bounds allocations for a decoded index payload.
	maxRawLength = 1 << 36
)

// encodeFrame wraps payload with the frame header.
func encodeFrame(payload []byte, c Compression) ([]byte, error) {
	stored, used, err := compress(payload, c)
	if err != nil {
		return nil, fmt.Errorf("compress index (%s): %w", c, err)
	}

	out := make([]byte, frameHeaderSize+len(stored))
	copy(out[0:4], frameMagic)
	out[4] = frameVersion
	out[5] = byte(used)
	binary.LittleEndian.PutUint32(out[8:12], CalculateChecksum(payload))
	binary.LittleEndian.PutUint64(out[12:20], uint64(len(payload)))
	binary.LittleEndian.PutUint64(out[20:28], uint64(len(stored)))
	copy(out[frameHeaderSize:], stored)
	return out, nil
}

// decodeFrame validates the header and checksum and returns the raw payload.
func decodeFrame(data []byte) ([]byte, error) {
	if len(data) < frameHeaderSize {
		return nil, fmt.Errorf("frame too small: %d bytes", len(data))
	}
	if string(data[0:4]) != frameMagic {
		return nil, fmt.Errorf("bad frame magic %q", data[0:4])
	}
	if data[4] != frameVersion {
		return nil, fmt.Errorf("unsupported frame version %d", data[4])
	}

	c := Compression(data[5])
	sum := binary.LittleEndian.Uint32(data[8:12])
	rawLen := binary.LittleEndian.Uint64(data[12:20])
	storedLen := binary.LittleEndian.Uint64(data[20:28])

	if storedLen != uint64(len(data)-frameHeaderSize) {
		return nil, fmt.Errorf("frame length %d, have %d bytes", storedLen, len(data)-frameHeaderSize)
	}
	if err := checkRawLength(c, storedLen, rawLen); err != nil {
		return nil, fmt.Errorf("frame (%s): %w", c, err)
	}

	payload, err := decompress(data[frameHeaderSize:], c, int(rawLen))
	if err != nil {
		return nil, fmt.Errorf("decompress (%s): %w", c, err)
	}

	if actual := CalculateChecksum(payload); actual != sum {
		return nil, &ChecksumMismatchError{Expected: sum, Actual: actual}
	}
	return payload, nil
}
