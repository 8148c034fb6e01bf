// Package codecs compresses and decompresses persisted ChangeSets.
package codecs

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

// Codec is a compression codec. Codec values are persisted alongside the
// content they encode, and must not be renumbered.
type Codec int

const (
	None      Codec = 0
	Gzip      Codec = 1
	Snappy    Codec = 2
	Zstandard Codec = 3
)

var codecNames = map[Codec]string{
	None:      "none",
	Gzip:      "gzip",
	Snappy:    "snappy",
	Zstandard: "zstandard",
}

func (c Codec) String() string {
	if n, ok := codecNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Codec(%d)", int(c))
}

// Validate returns an error if the Codec is not known.
func (c Codec) Validate() error {
	if _, ok := codecNames[c]; !ok {
		return fmt.Errorf("unknown codec (%d)", int(c))
	}
	return nil
}

// UnmarshalFlag parses a case-insensitive Codec name, for use as a flag value.
func (c *Codec) UnmarshalFlag(value string) error {
	for codec, name := range codecNames {
		if strings.EqualFold(name, value) {
			*c = codec
			return nil
		}
	}
	return fmt.Errorf("unknown codec %q", value)
}

// MarshalFlag returns the name of the Codec.
func (c Codec) MarshalFlag() (string, error) { return c.String(), nil }

// Decompressor is a ReadCloser where Close closes and releases Decompressor
// state, but does not Close or affect the underlying Reader.
type Decompressor io.ReadCloser

// Compressor is a WriteCloser where Close closes and releases Compressor
// state, potentially flushing final content to the underlying Writer,
// but does not Close or otherwise affect the underlying Writer.
type Compressor io.WriteCloser

// NewCodecReader returns a Decompressor of the Reader encoded with Codec.
func NewCodecReader(r io.Reader, codec Codec) (Decompressor, error) {
	switch codec {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case Zstandard:
		return zstdNewReader(r)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
}

// NewCodecWriter returns a Compressor wrapping the Writer encoding with Codec.
func NewCodecWriter(w io.Writer, codec Codec) (Compressor, error) {
	switch codec {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case Zstandard:
		return zstdNewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
}

// Encode returns |b| compressed with the Codec.
func Encode(b []byte, codec Codec) ([]byte, error) {
	if codec == None {
		return b, nil
	}
	var buf bytes.Buffer
	var w, err = NewCodecWriter(&buf, codec)

	if err == nil {
		_, err = w.Write(b)
	}
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("encoding with %s: %w", codec, err)
	}
	return buf.Bytes(), nil
}

// Decode returns |b| decompressed with the Codec.
func Decode(b []byte, codec Codec) ([]byte, error) {
	if codec == None {
		return b, nil
	}
	var r, err = NewCodecReader(bytes.NewReader(b), codec)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if out, err := io.ReadAll(r); err != nil {
		return nil, fmt.Errorf("decoding with %s: %w", codec, err)
	} else {
		return out, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

var (
	zstdNewReader = func(io.Reader) (io.ReadCloser, error) {
		return nil, fmt.Errorf("ZSTANDARD was not enabled at compile time")
	}
	zstdNewWriter = func(io.Writer) (io.WriteCloser, error) {
		return nil, fmt.Errorf("ZSTANDARD was not enabled at compile time")
	}
)
