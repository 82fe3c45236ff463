// Package commit produces and verifies salted SHA-256 commitments over query
// results.
//
// A Scheme draws one random salt when it is created and reuses it for every
// commitment it issues. A commitment records the id of that salt instance,
// so a proof can only be verified by the Scheme that produced it.
//
// This is a deterministic commitment, not a zero-knowledge proof. It shows
// that a value has not changed since it was committed. It does not hide the
// value: anyone holding the salt can confirm a guess, and a prover who
// controls both the value and the proof can simply commit to a false value.
package commit

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const SaltSize = 16

type Commitment struct {
	Digest string    `json:"digest"`
	Salt   uuid.UUID `json:"salt"`
}

func (c Commitment) String() string {
	return c.Digest
}

func (c Commitment) IsZero() bool {
	return c.Digest == ""
}

type Scheme struct {
	id   uuid.UUID
	salt []byte
}

func NewScheme() (*Scheme, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &Scheme{
		id:   uuid.New(),
		salt: salt,
	}, nil
}

// ID names the salt instance.
func (s *Scheme) ID() uuid.UUID {
	return s.id
}

// Commit returns the commitment over value alone.
func (s *Scheme) Commit(value any) (Commitment, error) {
	digest, err := s.digest(value)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{Digest: digest, Salt: s.id}, nil
}

// Generate commits to value and, when condition is non-nil, separately to
// condition.
func (s *Scheme) Generate(value, condition any) (Commitment, *Commitment, error) {
	proof, err := s.Commit(value)
	if err != nil {
		return Commitment{}, nil, err
	}
	if condition == nil {
		return proof, nil, nil
	}

	conditionProof, err := s.Commit(condition)
	if err != nil {
		return Commitment{}, nil, err
	}
	return proof, &conditionProof, nil
}

// Verify recomputes the digests with this scheme's salt. It is true only if
// the value digest matches and, when condition is non-nil, conditionProof
// matches the condition.
func (s *Scheme) Verify(proof Commitment, conditionProof *Commitment, value, condition any) bool {
	if !s.verifyOne(proof, value) {
		return false
	}
	if condition == nil {
		return true
	}
	if conditionProof == nil {
		return false
	}
	return s.verifyOne(*conditionProof, condition)
}

func (s *Scheme) verifyOne(proof Commitment, value any) bool {
	if proof.Salt != s.id {
		return false
	}

	digest, err := s.digest(value)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(proof.Digest)) == 1
}

func (s *Scheme) digest(value any) (string, error) {
	canonical, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode committed value: %w", err)
	}

	h := sha256.New()
	h.Write(canonical)
	h.Write(s.salt)
	return hex.EncodeToString(h.Sum(nil)), nil
}
