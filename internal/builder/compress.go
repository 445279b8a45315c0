package builder

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/normalization"
)

// Encoding names a precompressed companion format.
type Encoding string

const (
	EncodingGzip Encoding = "gzip"
	EncodingZstd Encoding = "zstd"
)

var encodingNormalizer = normalization.NewEnumNormalizer("precompress encoding", map[string]Encoding{
	"gzip": EncodingGzip,
	"gz":   EncodingGzip,
	"zstd": EncodingZstd,
	"zst":  EncodingZstd,
}, "")

// ParseEncoding validates a precompress setting.
func ParseEncoding(raw string) (Encoding, error) {
	return encodingNormalizer.Parse(raw, true)
}

// Suffix is the file suffix appended to the primary output name.
func (e Encoding) Suffix() string {
	switch e {
	case EncodingGzip:
		return ".gz"
	case EncodingZstd:
		return ".zst"
	default:
		return ""
	}
}

// zstdEncoder is shared; EncodeAll is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic("builder: zstd encoder initialization failed: " + err.Error())
	}
}

func compress(e Encoding, data []byte) ([]byte, error) {
	switch e {
	case EncodingZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case EncodingGzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, nil
	}
}
