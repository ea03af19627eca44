package badgerstore

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"metricsdash/internal/core"
)

// codec turns records into compressed values and back.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	return &codec{encoder: encoder, decoder: decoder}, nil
}

// encode compresses the record's fields. The date lives in the key.
func (c *codec) encode(rec core.Record) ([]byte, error) {
	body := core.Record{Fields: make([]core.Field, 0, len(rec.Fields))}
	for _, f := range rec.Fields {
		if !core.IsMetadataField(f.Name) {
			body.Fields = append(body.Fields, f)
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode metric %s: %w", rec.Date, err)
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

func (c *codec) decode(date core.Date, value []byte) (core.Record, error) {
	raw, err := c.decoder.DecodeAll(value, nil)
	if err != nil {
		return core.Record{}, fmt.Errorf("decompress metric %s: %w", date, err)
	}
	var rec core.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.Record{}, fmt.Errorf("decode metric %s: %w", date, err)
	}
	rec.Date = date
	return rec, nil
}

func (c *codec) close() {
	c.encoder.Close()
	c.decoder.Close()
}
