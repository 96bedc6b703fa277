package utils

import "golang.org/x/crypto/bcrypt"

const BcryptCost = 12

// HashOrganizerKey хеширует статический ключ организатора для хранения
// в конфигурации.
func HashOrganizerKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	return string(bytes), err
}

// CheckOrganizerKey сверяет предъявленный ключ с bcrypt-хешем из конфигурации.
func CheckOrganizerKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
