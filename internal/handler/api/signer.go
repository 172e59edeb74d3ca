// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const macSize = 16

// Signer authenticates listing session handles so that clients cannot probe
// the registry for other clients' sessions.
type Signer struct {
	key [32]byte
}

// NewSigner derives a MAC key from secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signer secret is empty")
	}
	return &Signer{key: blake2b.Sum256(secret)}, nil
}

// Sign returns id with its MAC appended.
func (s *Signer) Sign(id string) string {
	return id + "." + s.mac(id)
}

// Verify returns the id inside token when its MAC is valid.
func (s *Signer) Verify(token string) (string, bool) {
	i := strings.LastIndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return "", false
	}
	id, sig := token[:i], token[i+1:]
	if subtle.ConstantTimeCompare([]byte(sig), []byte(s.mac(id))) != 1 {
		return "", false
	}
	return id, true
}

func (s *Signer) mac(id string) string {
	h, err := blake2b.New256(s.key[:])
	if err != nil {
		// Only possible with a key longer than 64 bytes.
		panic(err)
	}
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:macSize])
}
