package crypto

import "golang.org/x/crypto/bcrypt"

// Pepper is appended to every raw password before hashing. Set once at
// startup from config; changing it invalidates all stored hashes.
var Pepper string

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password+Pepper), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+Pepper))
}
