package seal

import (
	"encoding/binary"
	"fmt"
)

// IDSize is the encoded size of one identifier slot.
const IDSize = 8

// HeaderSize is the length of the signature and nonce preceding the
// ciphertext in a marshaled blob.
const HeaderSize = SignatureSize + NonceSize

// Blob is the persisted form of a sealed identifier set:
// signature || nonce || ciphertext.
type Blob struct {
	Signature  []byte
	Nonce      []byte
	Ciphertext []byte
}

// Payload returns nonce || ciphertext, the bytes covered by the signature.
func (b *Blob) Payload() []byte {
	out := make([]byte, 0, len(b.Nonce)+len(b.Ciphertext))
	out = append(out, b.Nonce...)
	return append(out, b.Ciphertext...)
}

// Len returns the marshaled size of b.
func (b *Blob) Len() int {
	return len(b.Signature) + len(b.Nonce) + len(b.Ciphertext)
}

// Marshal returns signature || nonce || ciphertext.
func (b *Blob) Marshal() []byte {
	out := make([]byte, 0, b.Len())
	out = append(out, b.Signature...)
	out = append(out, b.Nonce...)
	return append(out, b.Ciphertext...)
}

// UnmarshalBlob splits data into its signature, nonce and ciphertext. The
// ciphertext must be a whole number of identifier slots.
func UnmarshalBlob(data []byte) (*Blob, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: blob is %d bytes, header alone is %d", ErrMalformed, len(data), HeaderSize)
	}
	ct := data[HeaderSize:]
	if len(ct)%IDSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext of %d bytes is not a multiple of %d", ErrMalformed, len(ct), IDSize)
	}
	return &Blob{
		Signature:  append([]byte(nil), data[:SignatureSize]...),
		Nonce:      append([]byte(nil), data[SignatureSize:HeaderSize]...),
		Ciphertext: append([]byte(nil), ct...),
	}, nil
}

// EncodeIDs serializes ids as consecutive little-endian int64 values.
func EncodeIDs(ids []int64) []byte {
	out := make([]byte, len(ids)*IDSize)
	for i, id := range ids {
		binary.LittleEndian.PutUint64(out[i*IDSize:], uint64(id))
	}
	return out
}

// DecodeIDs reverses EncodeIDs.
func DecodeIDs(data []byte) ([]int64, error) {
	if len(data)%IDSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformed, len(data), IDSize)
	}
	ids := make([]int64, len(data)/IDSize)
	for i := range ids {
		ids[i] = int64(binary.LittleEndian.Uint64(data[i*IDSize:]))
	}
	return ids, nil
}
