package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories/memory"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := memory.NewStore(utils.SystemClock{})
	ctx := context.Background()
	active := &models.User{Username: "ada", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, active))
	inactive := &models.User{Username: "bob"}
	require.NoError(t, store.Users().Create(ctx, inactive))

	var seen *models.User
	handler := AuthMiddleware(&key.PublicKey, store.Users())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	exp := time.Now().Add(time.Hour).Unix()
	claimsFor := func(sub string) jwt.MapClaims {
		return jwt.MapClaims{"sub": sub, "iss": TokenIssuer, "exp": exp}
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + sign(t, key, claimsFor(active.ID.String())), http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign(t, other, claimsFor(active.ID.String())), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, key, jwt.MapClaims{"sub": active.ID.String(), "iss": TokenIssuer, "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + sign(t, key, jwt.MapClaims{"sub": active.ID.String(), "iss": "someone", "exp": exp}), http.StatusUnauthorized},
		{"no expiry", "Bearer " + sign(t, key, jwt.MapClaims{"sub": active.ID.String(), "iss": TokenIssuer}), http.StatusUnauthorized},
		{"bad subject", "Bearer " + sign(t, key, claimsFor("ada")), http.StatusUnauthorized},
		{"unknown user", "Bearer " + sign(t, key, claimsFor(uuid.NewString())), http.StatusUnauthorized},
		{"inactive user", "Bearer " + sign(t, key, claimsFor(inactive.ID.String())), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/buildings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, active.ID, seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestExpiredTokenCode(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok := sign(t, key, jwt.MapClaims{"sub": uuid.NewString(), "iss": TokenIssuer, "exp": time.Now().Add(-time.Hour).Unix()})

	_, err = ValidateToken(tok, &key.PublicKey)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = ValidateToken(tok, nil)
	assert.Error(t, err)
}

func TestUserFromContext(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))
	u := &models.User{ID: uuid.New()}
	assert.Same(t, u, UserFromContext(WithUser(context.Background(), u)))
}
