package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCreateAndParseJWT(t *testing.T) {
	token, err := CreateJWT("user-1", "ada", "s3cret", time.Hour)
	if err != nil {
		t.Fatalf("CreateJWT() error = %v", err)
	}

	claims, err := ParseJWT(token, "s3cret")
	if err != nil {
		t.Fatalf("ParseJWT() error = %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Errorf("UserID() = %q, want user-1", claims.UserID())
	}
	if claims.Login != "ada" {
		t.Errorf("Login = %q, want ada", claims.Login)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, _ := CreateJWT("user-1", "ada", "s3cret", time.Hour)

	if _, err := ParseJWT(token, "other"); err == nil {
		t.Error("ParseJWT() should reject a token signed with another secret")
	}
}

func TestParseJWT_Expired(t *testing.T) {
	claims := AppClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseJWT(token, "s3cret"); err == nil {
		t.Error("ParseJWT() should reject an expired token")
	}
}

func TestParseJWT_MissingSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AppClaims{Login: "ada"}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseJWT(token, "s3cret"); err == nil {
		t.Error("ParseJWT() should reject a token without subject")
	}
}

func TestNoSecret(t *testing.T) {
	if _, err := CreateJWT("u", "l", "", 0); !errors.Is(err, ErrNoSecret) {
		t.Errorf("CreateJWT() error = %v, want ErrNoSecret", err)
	}
	if _, err := ParseJWT("x", ""); !errors.Is(err, ErrNoSecret) {
		t.Errorf("ParseJWT() error = %v, want ErrNoSecret", err)
	}
}
