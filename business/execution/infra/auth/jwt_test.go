package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fd1az/paybridge/internal/apperror"
)

const secret = "test-secret-with-enough-entropy-0123456789"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "merchant-42",
		"iss": "paybridge",
		"aud": "executions",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthenticator_Verify(t *testing.T) {
	a := NewAuthenticator(Config{Secret: secret, Issuer: "paybridge", Audience: "executions"})

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIss := validClaims()
	wrongIss["iss"] = "someone-else"
	audList := validClaims()
	audList["aud"] = []string{"dashboard", "executions"}
	noAud := validClaims()
	delete(noAud, "aud")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())},
		{name: "audience list", token: sign(t, jwt.SigningMethodHS256, []byte(secret), audList)},
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not.a.jwt", wantErr: true},
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("other-secret"), validClaims()), wantErr: true},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(secret), expired), wantErr: true},
		{name: "wrong issuer", token: sign(t, jwt.SigningMethodHS256, []byte(secret), wrongIss), wantErr: true},
		{name: "missing audience", token: sign(t, jwt.SigningMethodHS256, []byte(secret), noAud), wantErr: true},
		{name: "alg none", token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims()), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := a.Verify(tt.token)
			if tt.wantErr {
				if !apperror.IsCode(err, apperror.CodeUnauthorized) {
					t.Fatalf("err = %v, want Unauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if sub != "merchant-42" {
				t.Errorf("subject = %q", sub)
			}
		})
	}
}

func TestAuthenticator_EmptySecretFailsClosed(t *testing.T) {
	a := NewAuthenticator(Config{})
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())
	if _, err := a.Verify(token); !apperror.IsCode(err, apperror.CodeUnauthorized) {
		t.Errorf("err = %v, want Unauthorized", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
