package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v4"
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	CompressionVersionZero   = []byte{0, 0, 0, 0}
	CompressionVersionLatest = CompressionVersionZero
)

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	zstdEncoder, zstdDecoder = enc, dec
}

func compressMsgpackMarshalPanic(val interface{}) []byte {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf).UseCompactEncoding(true).SortMapKeys(true)
	err := enc.Encode(val)
	if err != nil {
		panic(fmt.Errorf("compressMsgpackMarshalPanic: %#v %s", val, err.Error()))
	}
	payload := zstdEncoder.EncodeAll(buf.Bytes(), nil)
	return append(append([]byte{}, CompressionVersionLatest...), payload...)
}

func decompressMsgpackUnmarshal(data []byte, val interface{}) error {
	header := len(CompressionVersionLatest)
	if len(data) < header || !bytes.Equal(data[:header], CompressionVersionZero) {
		return fmt.Errorf("decompressMsgpackUnmarshal: invalid version %s", hex.EncodeToString(data))
	}
	payload, err := zstdDecoder.DecodeAll(data[header:], nil)
	if err != nil {
		return err
	}
	err = msgpack.Unmarshal(payload, val)
	if err == nil {
		return nil
	}
	return fmt.Errorf("decompressMsgpackUnmarshal: %s %s", hex.EncodeToString(payload), err.Error())
}
