package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/locate-service/internal/domain"
)

var (
	ErrUnknownActor       = errors.New("unknown actor")
	ErrActorNotEnabled    = errors.New("actor has no secret configured")
	ErrSecretMismatch     = errors.New("secret does not match")
	ErrSecretBelowMinCost = errors.New("bcrypt cost below minimum")
)

// HashSecret hashes a shared actor secret with the given bcrypt cost.
func HashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		return "", ErrSecretBelowMinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// SecretStore holds the bcrypt hash of each caller actor's shared
// secret. The system actor never authenticates.
type SecretStore struct {
	hashes map[domain.Actor]string
}

func NewSecretStore(agentHash, operatorHash string) *SecretStore {
	return &SecretStore{hashes: map[domain.Actor]string{
		domain.ActorAgent:    agentHash,
		domain.ActorOperator: operatorHash,
	}}
}

// Verify checks secret against actor's hash.
func (s *SecretStore) Verify(actor domain.Actor, secret string) error {
	hash, ok := s.hashes[actor]
	if !ok {
		return ErrUnknownActor
	}
	if hash == "" {
		return ErrActorNotEnabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrSecretMismatch
	}
	return nil
}
