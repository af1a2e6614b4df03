// Package password hashes and verifies account passwords with Argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

type params struct {
	memory  uint32
	time    uint32
	threads uint8
}

// Hash encodes the password in the standard
// $argon2id$v=19$m=...,t=...,p=...$salt$hash form.
func Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether the password matches the encoded hash. The
// cost parameters come from the hash itself so older rows keep
// verifying after a cost bump.
func Verify(password, encoded string) bool {
	p, salt, hash, ok := decode(encoded)
	if !ok {
		return false
	}
	check := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}

func decode(encoded string) (params, []byte, []byte, bool) {
	var p params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return p, nil, nil, false
	}

	fields := strings.Split(parts[3], ",")
	if len(fields) != 3 {
		return p, nil, nil, false
	}
	memory, ok := parseCost(fields[0], "m=", 32)
	if !ok {
		return p, nil, nil, false
	}
	timeCost, ok := parseCost(fields[1], "t=", 32)
	if !ok {
		return p, nil, nil, false
	}
	threads, ok := parseCost(fields[2], "p=", 8)
	if !ok {
		return p, nil, nil, false
	}
	p.memory = uint32(memory)
	p.time = uint32(timeCost)
	p.threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, false
	}
	return p, salt, hash, true
}

func parseCost(field, prefix string, bits int) (uint64, bool) {
	raw, ok := strings.CutPrefix(field, prefix)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, false
	}
	return value, true
}
