// Package binarray decodes the base64 encoded float arrays used by the XML
// peak-list formats (mzML, mzXML, PRIDE XML).
package binarray

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
)

// Encoding describes how an array was written.
type Encoding struct {
	Zlib  bool
	Bits  int // 32 or 64
	Order binary.ByteOrder
}

// Decode returns the float values stored in encoded.
func Decode(encoded string, enc Encoding) ([]float64, error) {
	// Some writers wrap base64 over several lines
	encoded = strings.Join(strings.Fields(encoded), "")
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	if enc.Zlib {
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("invalid zlib data: %w", err)
		}
		defer z.Close()
		data, err = io.ReadAll(z)
		if err != nil {
			return nil, fmt.Errorf("invalid zlib data: %w", err)
		}
	}

	order := enc.Order
	if order == nil {
		order = binary.LittleEndian
	}

	switch enc.Bits {
	case 64:
		cnt := len(data) / 8
		values := make([]float64, cnt)
		for i := 0; i < cnt; i++ {
			values[i] = math.Float64frombits(order.Uint64(data[i*8:]))
		}
		return values, nil
	case 32, 0:
		cnt := len(data) / 4
		values := make([]float64, cnt)
		for i := 0; i < cnt; i++ {
			values[i] = float64(math.Float32frombits(order.Uint32(data[i*4:])))
		}
		return values, nil
	}
	return nil, fmt.Errorf("unsupported precision %d", enc.Bits)
}

// Encode is the inverse of Decode. It is used to build test fixtures.
func Encode(values []float64, enc Encoding) (string, error) {
	order := enc.Order
	if order == nil {
		order = binary.LittleEndian
	}

	var raw []byte
	switch enc.Bits {
	case 64:
		raw = make([]byte, len(values)*8)
		for i, v := range values {
			order.PutUint64(raw[i*8:], math.Float64bits(v))
		}
	case 32, 0:
		raw = make([]byte, len(values)*4)
		for i, v := range values {
			order.PutUint32(raw[i*4:], math.Float32bits(float32(v)))
		}
	default:
		return "", fmt.Errorf("unsupported precision %d", enc.Bits)
	}

	if enc.Zlib {
		var b bytes.Buffer
		z := zlib.NewWriter(&b)
		if _, err := z.Write(raw); err != nil {
			return "", err
		}
		// zlib writer must be closed before reading the buffer
		if err := z.Close(); err != nil {
			return "", err
		}
		raw = b.Bytes()
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Zip pairs separate m/z and intensity arrays into peaks. Missing values
// are left at zero.
func Zip(mz, intensity []float64) []core.Peak {
	n := len(mz)
	if len(intensity) > n {
		n = len(intensity)
	}
	peaks := make([]core.Peak, n)
	for i := range peaks {
		if i < len(mz) {
			peaks[i].MZ = mz[i]
		}
		if i < len(intensity) {
			peaks[i].Intensity = intensity[i]
		}
	}
	return peaks
}

// Interleaved splits an m/z-intensity pair array (mzXML) into peaks.
func Interleaved(values []float64) []core.Peak {
	peaks := make([]core.Peak, len(values)/2)
	for i := range peaks {
		peaks[i] = core.Peak{MZ: values[2*i], Intensity: values[2*i+1]}
	}
	return peaks
}
