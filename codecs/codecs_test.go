package codecs

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrips(t *testing.T) {
	var content = []byte(strings.Repeat("changeset content ", 1000))

	for _, codec := range []Codec{None, Gzip, Snappy, Zstandard} {
		var enc, err = Encode(content, codec)
		require.NoError(t, err, codec)

		if codec == None {
			require.Equal(t, content, enc)
		} else {
			require.Less(t, len(enc), len(content), codec)
		}

		dec, err := Decode(enc, codec)
		require.NoError(t, err, codec)
		require.Equal(t, content, dec, codec)

		// Streaming readers and writers are interchangeable with Encode and Decode.
		var buf bytes.Buffer
		w, err := NewCodecWriter(&buf, codec)
		require.NoError(t, err)
		_, err = w.Write(content[:100])
		require.NoError(t, err)
		_, err = w.Write(content[100:])
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := NewCodecReader(&buf, codec)
		require.NoError(t, err)
		dec, err = io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.Equal(t, content, dec, codec)
	}
}

func TestCodecValidationAndFlags(t *testing.T) {
	require.NoError(t, Snappy.Validate())
	require.EqualError(t, Codec(42).Validate(), "unknown codec (42)")
	require.Equal(t, "Codec(42)", Codec(42).String())

	var c Codec
	require.NoError(t, c.UnmarshalFlag("ZStandard"))
	require.Equal(t, Zstandard, c)
	require.EqualError(t, c.UnmarshalFlag("lz4"), `unknown codec "lz4"`)

	var s, err = Gzip.MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "gzip", s)

	_, err = Encode([]byte("x"), Codec(42))
	require.EqualError(t, err, "encoding with Codec(42): unsupported codec Codec(42)")
	_, err = Decode([]byte("x"), Codec(42))
	require.EqualError(t, err, "unsupported codec Codec(42)")
	_, err = Decode([]byte("not gzip"), Gzip)
	require.Error(t, err)
}
