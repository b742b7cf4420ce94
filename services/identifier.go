package services

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mazen160/go-random"

	"classconnect-scraper/models"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns a fresh identifier of models.IDLength characters drawn from [a-z0-9].
func NewID() (string, error) {
	return randomChars(models.IDLength)
}

// PadID derives an identifier from an external registration id. Lengths count characters,
// not bytes. Ids of at least models.IDLength characters are truncated, which is
// deterministic; shorter ids are padded with random [a-z0-9] characters, which is not.
func PadID(external string) (string, error) {
	runes := []rune(external)
	if len(runes) >= models.IDLength {
		return string(runes[:models.IDLength]), nil
	}
	suffix, err := randomChars(models.IDLength - len(runes))
	if err != nil {
		return "", err
	}
	return external + suffix, nil
}

func randomChars(n int) (string, error) {
	var b strings.Builder
	for b.Len() < n {
		chunk, err := random.String(n)
		if err != nil {
			return "", errors.Wrap(err, "generate identifier")
		}
		for _, r := range strings.ToLower(chunk) {
			if b.Len() == n {
				break
			}
			if strings.ContainsRune(idAlphabet, r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String(), nil
}
