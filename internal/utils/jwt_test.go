package utils

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	signKey = "test-sign-key"
	issuer  = "accounting-auth"
)

func signToken(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	expires := jwt.NewNumericDate(time.Now().Add(time.Hour))
	expired := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name    string
		token   string
		wantID  int64
		wantErr bool
	}{
		{
			name: "валидный токен",
			token: signToken(t, jwt.RegisteredClaims{
				Subject: "42", Issuer: issuer, ExpiresAt: expires,
			}, signKey),
			wantID: 42,
		},
		{
			name: "чужой ключ подписи",
			token: signToken(t, jwt.RegisteredClaims{
				Subject: "42", Issuer: issuer, ExpiresAt: expires,
			}, "other-key"),
			wantErr: true,
		},
		{
			name: "просроченный токен",
			token: signToken(t, jwt.RegisteredClaims{
				Subject: "42", Issuer: issuer, ExpiresAt: expired,
			}, signKey),
			wantErr: true,
		},
		{
			name: "чужой издатель",
			token: signToken(t, jwt.RegisteredClaims{
				Subject: "42", Issuer: "someone-else", ExpiresAt: expires,
			}, signKey),
			wantErr: true,
		},
		{
			name: "без срока действия",
			token: signToken(t, jwt.RegisteredClaims{
				Subject: "42", Issuer: issuer,
			}, signKey),
			wantErr: true,
		},
		{
			name: "пустой subject",
			token: signToken(t, jwt.RegisteredClaims{
				Issuer: issuer, ExpiresAt: expires,
			}, signKey),
			wantErr: true,
		},
		{
			name: "subject не число",
			token: signToken(t, jwt.RegisteredClaims{
				Subject: "alice", Issuer: issuer, ExpiresAt: expires,
			}, signKey),
			wantErr: true,
		},
		{
			name:    "мусор вместо токена",
			token:   "not-a-jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := ValidateToken(tt.token, signKey, issuer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, userID)
		})
	}
}

func TestValidateToken_RejectsUnsignedAlgorithm(t *testing.T) {
	// alg=none не проходит проверку метода подписи.
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "42", Issuer: issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(token, signKey, issuer)
	assert.Error(t, err)
}

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"обычный bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"лишние пробелы по краям", "  Bearer token  ", "token", false},
		{"пустой заголовок", "", "", true},
		{"без токена", "Bearer ", "", true},
		{"только токен", "abc.def.ghi", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearerToken(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateToken_LargeUserID(t *testing.T) {
	id := int64(1) << 40
	token := signToken(t, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(id, 10),
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, signKey)

	userID, err := ValidateToken(token, signKey, issuer)
	require.NoError(t, err)
	assert.Equal(t, id, userID)
}
