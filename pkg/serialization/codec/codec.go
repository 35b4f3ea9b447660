// Package codec defines the pluggable serialization hook used by the
// store's value pipeline. Logical keys never pass through a codec.
package codec

// Codec turns application values into bytes and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
