package util

import (
	"edu_copilot_backend/internal/model"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "sam@example.org", Role: model.Student}
	user.ID = 42

	token, err := GenerateJWT(user, "secret-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseJWT(token, "secret-secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Role != model.Student || claims.Subject != "42" {
		t.Fatalf("claims: got=%+v", claims)
	}

	if _, err := ParseJWT(token, "other-secret"); err == nil {
		t.Fatalf("wrong secret: want error")
	}
	expired, _ := GenerateJWT(user, "secret-secret", -time.Minute)
	if _, err := ParseJWT(expired, "secret-secret"); err == nil {
		t.Fatalf("expired token: want error")
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"k=5", 5},
		{"k=abc", 10},
		{"k=-3", 10},
		{"k=500", 50},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/?"+tt.query, nil)
		if got := QueryInt(c, "k", 10, 50); got != tt.want {
			t.Fatalf("QueryInt(%q): want=%d got=%d", tt.query, tt.want, got)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" fractions, decimals,,  ")
	want := []string{"fractions", "decimals"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitCSV: want=%v got=%v", want, got)
	}
	if SplitCSV("") != nil {
		t.Fatalf("SplitCSV empty: want nil")
	}
}
