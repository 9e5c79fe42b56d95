package psswd

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type BcryptHasher struct{}

func New() BcryptHasher {
	return BcryptHasher{}
}

func (BcryptHasher) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %s", err.Error())
	}
	return string(bytes), nil
}

func (BcryptHasher) ComparePassword(password string, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
