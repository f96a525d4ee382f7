// Package seal encrypts and authenticates the identifier set of a pyramid.
//
// The caller supplies a 16-byte key. Two independent subkeys are derived from
// it with HKDF-SHA256: one keys an AES-128-CTR stream cipher, the other keys
// an HMAC-SHA-384 signature over nonce || ciphertext.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length of the caller-supplied key in bytes.
	KeySize = 16

	// NonceSize is the length of the per-encryption nonce (the CTR IV).
	NonceSize = aes.BlockSize

	// SignatureSize is the length of the HMAC-SHA-384 tag.
	SignatureSize = sha512.Size384

	hkdfCipherInfo = "pyramid-id-cipher"
	hkdfMACInfo    = "pyramid-id-signature"
)

// Codec holds the subkeys derived from one caller key.
// A Codec is safe for concurrent use.
type Codec struct {
	cipherKey []byte
	macKey    []byte
	rand      io.Reader
}

// Option configures a Codec.
type Option func(*Codec)

// WithRand sets the nonce source. The default is crypto/rand.Reader.
func WithRand(r io.Reader) Option {
	return func(c *Codec) {
		if r != nil {
			c.rand = r
		}
	}
}

// New derives a Codec from a KeySize-byte key.
func New(key []byte, opts ...Option) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeySize, len(key), KeySize)
	}
	c := &Codec{rand: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.cipherKey, err = deriveKey(key, hkdfCipherInfo, KeySize); err != nil {
		return nil, err
	}
	if c.macKey, err = deriveKey(key, hkdfMACInfo, SignatureSize); err != nil {
		return nil, err
	}
	return c, nil
}

func deriveKey(key []byte, info string, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, key, nil, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: derive %s: %w", ErrCipherInit, info, err)
	}
	return out, nil
}

func (c *Codec) stream(nonce []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(c.cipherKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCipherInit, err)
	}
	return cipher.NewCTR(block, nonce), nil
}

// Encrypt encrypts plaintext under a fresh random nonce and returns the
// nonce and ciphertext. The ciphertext has the length of plaintext.
func (c *Codec) Encrypt(plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: nonce: %w", ErrEncrypt, err)
	}
	s, err := c.stream(nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	ciphertext = make([]byte, len(plaintext))
	s.XORKeyStream(ciphertext, plaintext)
	return nonce, ciphertext, nil
}

// Decrypt reverses Encrypt.
func (c *Codec) Decrypt(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce is %d bytes, want %d", ErrDecrypt, len(nonce), NonceSize)
	}
	s, err := c.stream(nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	plaintext := make([]byte, len(ciphertext))
	s.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// Sign returns the SignatureSize-byte tag of payload.
func (c *Codec) Sign(payload []byte) ([]byte, error) {
	mac := hmac.New(sha512.New384, c.macKey)
	if _, err := mac.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	return mac.Sum(nil), nil
}

// Verify checks signature against payload. A well-formed signature that does
// not match yields ErrIntegrityMismatch; anything that prevents the check
// yields ErrVerify.
func (c *Codec) Verify(signature, payload []byte) error {
	if len(signature) != SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes, want %d", ErrVerify, len(signature), SignatureSize)
	}
	want, err := c.Sign(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerify, err)
	}
	if !hmac.Equal(signature, want) {
		return ErrIntegrityMismatch
	}
	return nil
}

// Seal encodes ids, encrypts them under a fresh nonce and signs the result.
func (c *Codec) Seal(ids []int64) (*Blob, error) {
	nonce, ct, err := c.Encrypt(EncodeIDs(ids))
	if err != nil {
		return nil, err
	}
	b := &Blob{Nonce: nonce, Ciphertext: ct}
	if b.Signature, err = c.Sign(b.Payload()); err != nil {
		return nil, err
	}
	return b, nil
}

// Unseal verifies b, then decrypts and decodes its identifiers. Nothing is
// decrypted unless the signature matches.
func (c *Codec) Unseal(b *Blob) ([]int64, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil blob", ErrMalformed)
	}
	if err := c.Verify(b.Signature, b.Payload()); err != nil {
		return nil, err
	}
	plain, err := c.Decrypt(b.Nonce, b.Ciphertext)
	if err != nil {
		return nil, err
	}
	ids, err := DecodeIDs(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return ids, nil
}
