package codec

import "github.com/fxamacker/cbor/v2"

// CBORCodec implements the Codec interface for CBOR encoding and
// decoding. Unlike JSON it preserves integer types and binary values.
type CBORCodec struct{}

func (c CBORCodec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (c CBORCodec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
