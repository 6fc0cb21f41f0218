package verdoc

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// zstdFrameMagic starts every zstd frame. Uncompressed snapshots start
// with "DBV1" instead, so the two can't be confused.
var zstdFrameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type compressor struct {
	enabled bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCompressor(enabled bool) (*compressor, error) {
	c := &compressor{enabled: enabled}
	var err error
	if enabled {
		c.encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func isCompressed(data []byte) bool {
	return len(data) >= len(zstdFrameMagic) && bytes.Equal(data[:len(zstdFrameMagic)], zstdFrameMagic)
}

// compress returns data untouched when compression is disabled.
func (c *compressor) compress(data []byte) []byte {
	if c == nil || !c.enabled {
		return data
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, c.encoder.MaxEncodedSize(len(data))))
}

// decompress returns data untouched unless it starts with a zstd frame.
func (c *compressor) decompress(data []byte) ([]byte, error) {
	if !isCompressed(data) {
		return data, nil
	}
	return c.decoder.DecodeAll(data, nil)
}

func (c *compressor) close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
