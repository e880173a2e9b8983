package util

import (
	"testing"
	"time"

	"onboarding_backend/internal/model"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{
		Name:  "张三",
		Email: "zhangsan@example.com",
		Role:  model.Collaborator,
	}
	user.ID = 42

	token, err := GenerateJWT(user, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("userID = %d, want 42", claims.UserID)
	}
	if claims.Role != model.Collaborator {
		t.Fatalf("role = %s, want collaborator", claims.Role)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	user := &model.User{Email: "zhangsan@example.com"}
	user.ID = 1

	token, err := GenerateJWT(user, "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if _, err := ParseJWT(token, "wrong-secret"); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestParseJWTExpired(t *testing.T) {
	user := &model.User{Email: "zhangsan@example.com"}
	user.ID = 1

	token, err := GenerateJWT(user, "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if _, err := ParseJWT(token, "test-secret"); err == nil {
		t.Fatal("expired token must not parse")
	}
}
