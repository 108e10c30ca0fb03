package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medexam/intake-portal/internal/config"
	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func sessionRouter(mgr *session.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", SessionMiddleware(testSecret, mgr), func(c *gin.Context) {
		sess, err := sessionFromContext(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID})
	})
	return r
}

func TestSessionMiddlewareRoundTrip(t *testing.T) {
	mgr := session.NewManager(nil)
	sess := mgr.Start("occ-1", domain.VariantOSCE)
	router := sessionRouter(mgr)

	token, err := IssueSessionToken(testSecret, sess.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSessionMiddlewareRejectsBadTokens(t *testing.T) {
	mgr := session.NewManager(nil)
	sess := mgr.Start("occ-1", domain.VariantOSCE)
	router := sessionRouter(mgr)

	expired, err := IssueSessionToken(testSecret, sess.ID, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	wrongKey, err := IssueSessionToken("other-secret", sess.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestSessionMiddlewareGoneAfterDiscard(t *testing.T) {
	mgr := session.NewManager(nil)
	sess := mgr.Start("occ-1", domain.VariantOSCE)
	router := sessionRouter(mgr)

	token, err := IssueSessionToken(testSecret, sess.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	mgr.Discard(sess.ID)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410 for a discarded session", w.Code)
	}
}

func TestStaffAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := config.StaffConfig{Username: "staff", PasswordHash: string(hash)}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/staff", StaffAuthMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(user, pass string, withAuth bool) int {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		if withAuth {
			req.SetBasicAuth(user, pass)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := call("staff", "letmein", true); got != http.StatusOK {
		t.Fatalf("valid credentials rejected: %d", got)
	}
	if got := call("staff", "wrong", true); got != http.StatusUnauthorized {
		t.Fatalf("wrong password accepted: %d", got)
	}
	if got := call("nobody", "letmein", true); got != http.StatusUnauthorized {
		t.Fatalf("wrong username accepted: %d", got)
	}
	if got := call("", "", false); got != http.StatusUnauthorized {
		t.Fatalf("missing credentials accepted: %d", got)
	}
}
