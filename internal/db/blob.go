package db

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// encodeCube compresses a cube using gob encoding and gzip compression.
// NaN entries survive the round trip.
func encodeCube(cube []float64) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(cube); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeCube reverses encodeCube.
func decodeCube(blob []byte) ([]float64, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty cube blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var cube []float64
	if err := gob.NewDecoder(gz).Decode(&cube); err != nil {
		return nil, fmt.Errorf("failed to decode cube: %w", err)
	}
	return cube, nil
}
