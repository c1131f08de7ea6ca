package crypto

import (
	"golang.org/x/crypto/argon2"
)

const keyLen = 32

// keySalt is fixed so the same session key yields the same keys across restarts.
var keySalt = []byte("careerquiz/server-keys/v1")

// Keys are the independent secrets the server derives from its configured session key.
type Keys struct {
	SessionAuth       []byte
	SessionEncryption []byte
	CSRF              []byte
	Token             []byte
}

func DeriveKey(secret string, salt []byte, n int) []byte {
	// Argon2id parameters: 1 pass, 64MB memory, 4 threads
	return argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, uint32(n))
}

// DeriveKeys stretches secret once and splits the output into four 32-byte keys.
func DeriveKeys(secret string) Keys {
	buf := DeriveKey(secret, keySalt, 4*keyLen)
	return Keys{
		SessionAuth:       buf[0*keyLen : 1*keyLen],
		SessionEncryption: buf[1*keyLen : 2*keyLen],
		CSRF:              buf[2*keyLen : 3*keyLen],
		Token:             buf[3*keyLen : 4*keyLen],
	}
}
