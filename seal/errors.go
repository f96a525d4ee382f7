package seal

import "errors"

var (
	// ErrKeySize indicates a key that is not KeySize bytes long.
	ErrKeySize = errors.New("seal: invalid key size")

	// ErrCipherInit indicates the block cipher rejected its key.
	ErrCipherInit = errors.New("seal: cipher initialization failed")

	// ErrEncrypt indicates encryption of the identifier set failed.
	ErrEncrypt = errors.New("seal: encryption failed")

	// ErrDecrypt indicates decryption of a stored blob failed.
	ErrDecrypt = errors.New("seal: decryption failed")

	// ErrSign indicates the signature could not be computed.
	ErrSign = errors.New("seal: signing failed")

	// ErrVerify indicates the signature could not be checked at all, as
	// opposed to a signature that was checked and did not match.
	ErrVerify = errors.New("seal: verification failed")

	// ErrIntegrityMismatch indicates a signature that does not match its
	// payload. The blob must be treated as tampered.
	ErrIntegrityMismatch = errors.New("seal: integrity mismatch")

	// ErrMalformed indicates a blob or identifier encoding of invalid length.
	ErrMalformed = errors.New("seal: malformed data")
)
