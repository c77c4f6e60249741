package auth

import "golang.org/x/crypto/bcrypt"

// GeneratePasswordHash hashes a plaintext password with the given bcrypt cost.
// Cost values outside bcrypt's supported range fall back to the default.
func GeneratePasswordHash(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashedPassword), nil
}

// ComparePasswordHash returns an error on mismatch, never a panic. The
// underlying comparison is constant-time.
func ComparePasswordHash(hashedPassword []byte, password string) error {
	return bcrypt.CompareHashAndPassword(hashedPassword, []byte(password))
}
