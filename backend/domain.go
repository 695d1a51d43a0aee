package backend

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/skeliit/skeli/backend/data"
	"golang.org/x/crypto/scrypt"
)

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	return nil
}

// GenRandPassword returns a random 12 character hex password.
func GenRandPassword() (string, error) {
	pwBytes := make([]byte, 6)
	_, err := rand.Read(pwBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(pwBytes), nil
}

func SetPassword(u *data.User, password string) error {
	err := validatePassword(password)
	if err != nil {
		return err
	}

	salt := make([]byte, 8)
	_, err = rand.Read(salt)
	if err != nil {
		return err
	}

	digest, err := scrypt.Key([]byte(password), salt, 16384, 8, 1, 32)
	if err != nil {
		return err
	}

	u.PasswordDigest = digest
	u.PasswordSalt = salt

	return nil
}

func IsPassword(u *data.User, password string) bool {
	digest, err := scrypt.Key([]byte(password), u.PasswordSalt, 16384, 8, 1, 32)
	if err != nil {
		return false
	}

	return bytes.Equal(digest, u.PasswordDigest)
}
