package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{"whitelisted", []string{"https://app.example.org"}, "https://app.example.org", http.MethodGet, "https://app.example.org", "true", http.StatusOK},
		{"unknown origin", []string{"https://app.example.org"}, "https://evil.example", http.MethodGet, "", "", http.StatusOK},
		{"wildcard", []string{"*"}, "https://any.example", http.MethodGet, "*", "", http.StatusOK},
		{"preflight", []string{"https://app.example.org"}, "https://app.example.org", http.MethodOptions, "https://app.example.org", "true", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.allowed))
			r.Any("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: want=%d got=%d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("allow origin: want=%q got=%q", tt.wantOrigin, got)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Fatalf("allow credentials: want=%q got=%q", tt.wantCreds, got)
			}
		})
	}
}

func TestIPLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("1.1.1.1"); !ok {
			t.Fatalf("request %d: want allowed", i)
		}
	}
	ok, wait := l.Allow("1.1.1.1")
	if ok || wait <= 0 {
		t.Fatalf("third request: want rejected with wait, got ok=%v wait=%v", ok, wait)
	}
	if ok, _ := l.Allow("2.2.2.2"); !ok {
		t.Fatalf("other ip: want allowed")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := l.Allow("1.1.1.1"); !ok {
		t.Fatalf("after refill: want allowed")
	}

	now = now.Add(10 * time.Minute)
	if removed := l.Sweep(); removed != 2 || l.Len() != 0 {
		t.Fatalf("sweep: want=2 removed got=%d (left %d)", removed, l.Len())
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	r := gin.New()
	r.Use(RateLimiter(NewIPLimiter(1, time.Hour), stop))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
		last = w
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes: want=[200 429] got=%v", codes)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header missing")
	}
}
