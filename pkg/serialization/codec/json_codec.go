package codec

import "encoding/json"

// JSONCodec implements the Codec interface for JSON encoding and decoding.
// It is the default codec: it round-trips strings, booleans, numbers
// (as float64), slices and string-keyed maps.
type JSONCodec struct{}

func (j JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
