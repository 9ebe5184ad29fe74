package cache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// Codec converts values to and from the byte form stored on remote tiers.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// newCodec builds the codec stack for remote tiers: sonic JSON, optionally
// wrapped in gzip when compression is enabled.
func newCodec(compress bool, level int) Codec {
	var c Codec = jsonCodec{api: sonic.ConfigDefault}
	if compress {
		c = newGzipCodec(c, level)
	}
	return c
}

type jsonCodec struct {
	api sonic.API
}

func (c jsonCodec) Encode(v interface{}) ([]byte, error) {
	data, err := c.api.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return data, nil
}

func (c jsonCodec) Decode(data []byte, v interface{}) error {
	if err := c.api.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// gzipCodec compresses the inner codec's output. Levels outside the gzip
// range fall back to the default level.
type gzipCodec struct {
	inner Codec
	level int
}

func newGzipCodec(inner Codec, level int) gzipCodec {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return gzipCodec{inner: inner, level: level}
}

func (c gzipCodec) Encode(v interface{}) ([]byte, error) {
	data, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("compress value: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compress value: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress value: %w", err)
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) Decode(data []byte, v interface{}) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decompress value: %w", err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress value: %w", err)
	}
	return c.inner.Decode(plain, v)
}
