package repository

import (
	"bytes"
	"encoding/json"
	"sync"

	"golfjudge/internal/judge/model"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the encoded size above which status payloads are
// stored zstd-compressed. Full results with many test outcomes cross it.
const compressThreshold = 4 << 10

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return codecErr
}

func encodeStatus(status model.EvaluationStatus) ([]byte, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	if len(data) <= compressThreshold {
		return data, nil
	}
	if err := initCodec(); err != nil {
		return nil, err
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func decodeStatus(raw []byte) (model.EvaluationStatus, error) {
	var status model.EvaluationStatus
	if bytes.HasPrefix(raw, zstdMagic) {
		if err := initCodec(); err != nil {
			return status, err
		}
		plain, err := decoder.DecodeAll(raw, nil)
		if err != nil {
			return status, err
		}
		raw = plain
	}
	err := json.Unmarshal(raw, &status)
	return status, err
}
