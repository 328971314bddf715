package auth

// Account passwords are stored as bcrypt strings, which carry their own salt
// and work factor:
//
//	$2a$12$<22-char salt><31-char hash>
//
// Because the cost travels with the hash, raising BCRYPT_COST does not
// invalidate existing accounts: NeedsRehash flags them on their next login.

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt hashes without truncating.
const MaxPasswordBytes = 72

// defaultCost is used when the configured cost is outside bcrypt's range.
const defaultCost = 12

var (
	// ErrPasswordMismatch is returned by Verify when the password is wrong.
	ErrPasswordMismatch = errors.New("auth: invalid password")
	// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
	ErrPasswordTooLong = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
)

// PasswordService hashes and checks account passwords.
type PasswordService struct {
	cost int
}

// NewPasswordService uses the given bcrypt cost, or defaultCost when it is out
// of range.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest uses bcrypt.MinCost so suites stay fast.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

func (p *PasswordService) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares in constant time. A wrong password yields
// ErrPasswordMismatch; a corrupt stored hash yields another error.
func (p *PasswordService) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}

// NeedsRehash reports whether hash was made with a cost other than the
// service's. Unreadable hashes are left alone.
func (p *PasswordService) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return cost != p.cost
}
