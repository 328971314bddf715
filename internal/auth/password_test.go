package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordService_Cost(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{configured: 0, want: defaultCost},
		{configured: bcrypt.MinCost - 1, want: defaultCost},
		{configured: bcrypt.MaxCost + 1, want: defaultCost},
		{configured: bcrypt.MinCost, want: bcrypt.MinCost},
		{configured: 10, want: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewPasswordService(tt.configured).cost, "BCRYPT_COST=%d", tt.configured)
	}
}

// Registration accepts any password with upper, lower, digit and symbol; these
// are the shapes account passwords take in practice.
func TestPasswordService_AccountPasswords(t *testing.T) {
	ps := NewPasswordServiceForTest()

	passwords := map[string]string{
		"registration minimum": "Str0ng!pass",
		"passphrase":           "Correct horse battery st4ple!",
		"non-ascii":            "Pароль-密码1!",
		"surrounding spaces":   "  Padded 1!  ",
	}
	for name, pw := range passwords {
		t.Run(name, func(t *testing.T) {
			hash, err := ps.Hash(pw)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$2"), "bcrypt string, got %q", hash)
			assert.NotContains(t, hash, pw)

			assert.NoError(t, ps.Verify(hash, pw))
			assert.ErrorIs(t, ps.Verify(hash, strings.TrimSpace(pw)+"x"), ErrPasswordMismatch)
		})
	}
}

func TestPasswordService_SaltsEveryHash(t *testing.T) {
	ps := NewPasswordServiceForTest()

	a, err := ps.Hash("Str0ng!pass")
	require.NoError(t, err)
	b, err := ps.Hash("Str0ng!pass")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordService_ByteLimit(t *testing.T) {
	ps := NewPasswordServiceForTest()

	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{name: "72 ascii bytes", pw: "A1!" + strings.Repeat("a", 69)},
		{name: "73 ascii bytes", pw: "A1!" + strings.Repeat("a", 70), wantErr: true},
		// 24 runes of 3 bytes each: short in characters, at the byte limit.
		{name: "72 bytes of cjk", pw: strings.Repeat("密", 24)},
		{name: "75 bytes of cjk", pw: strings.Repeat("密", 25), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ps.Hash(tt.pw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPasswordTooLong)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPasswordService_VerifyRejects(t *testing.T) {
	ps := NewPasswordServiceForTest()
	hash, err := ps.Hash("Str0ng!pass")
	require.NoError(t, err)

	assert.ErrorIs(t, ps.Verify(hash, ""), ErrPasswordMismatch, "empty password")
	assert.ErrorIs(t, ps.Verify(hash, "str0ng!pass"), ErrPasswordMismatch, "case matters")

	err = ps.Verify("not-a-bcrypt-hash", "Str0ng!pass")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch, "a corrupt hash is not a wrong password")
}

func TestPasswordService_NeedsRehash(t *testing.T) {
	cheap := NewPasswordServiceForTest()
	hash, err := cheap.Hash("Str0ng!pass")
	require.NoError(t, err)

	assert.False(t, cheap.NeedsRehash(hash))
	assert.True(t, NewPasswordService(bcrypt.MinCost+1).NeedsRehash(hash))
	assert.False(t, cheap.NeedsRehash("not-a-bcrypt-hash"))
}
