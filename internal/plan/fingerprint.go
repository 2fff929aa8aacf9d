package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/chainrun/internal/errors"
)

// Fingerprint returns the blake3 hash of the canonical JSON form of p. Two
// plans have the same fingerprint exactly when they encode identically.
func Fingerprint(p *Plan) (string, error) {
	canonical, err := json.Marshal(ToDocument(p))
	if err != nil {
		return "", fmt.Errorf("canonicalize plan: %w", err)
	}

	hasher := blake3.New()
	if _, err := hasher.Write(canonical); err != nil {
		return "", fmt.Errorf("hash plan: %w", err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// VerifyFingerprint fails when want is set and does not match the plan.
func VerifyFingerprint(p *Plan, want string) error {
	if want == "" {
		return nil
	}
	got, err := Fingerprint(p)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, strings.TrimSpace(want)) {
		return errors.New(errors.ErrCodeFingerprintMismatch,
			fmt.Sprintf("plan fingerprint %s does not match the expected %s", got, want)).
			WithSuggestion("The plan changed after it was reviewed; regenerate and review it again")
	}
	return nil
}
