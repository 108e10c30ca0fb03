package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medexam/intake-portal/internal/config"
	"medexam/intake-portal/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// Context key under which the resolved draft session is stored.
const ContextSessionKey = "draftSession"

// sessionClaims is the JWT payload of an applicant session token.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a token binding the applicant to one draft session.
func IssueSessionToken(jwtSecret, sessionID string, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// SessionMiddleware authenticates the session token and resolves the live
// draft session into the Gin context.
func SessionMiddleware(jwtSecret string, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Session token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, "Invalid session token")
			}
			return
		}
		if !token.Valid || claims.SessionID == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid session token")
			return
		}

		sess, ok := sessions.Get(claims.SessionID)
		if !ok {
			// Token fine, but the session is gone (submitted or idle-swept).
			abortWithError(c, http.StatusGone, "Draft session no longer exists")
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// StaffAuthMiddleware guards the staff endpoints with basic auth checked
// against the configured bcrypt hash.
func StaffAuthMiddleware(cfg config.StaffConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok || username != cfg.Username {
			c.Header("WWW-Authenticate", `Basic realm="staff"`)
			abortWithError(c, http.StatusUnauthorized, "Staff credentials required")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(password)); err != nil {
			c.Header("WWW-Authenticate", `Basic realm="staff"`)
			abortWithError(c, http.StatusUnauthorized, "Staff credentials required")
			return
		}
		c.Next()
	}
}

// abortWithError returns a JSON error response and aborts the request.
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// sessionFromContext fetches the draft session resolved by the middleware.
func sessionFromContext(c *gin.Context) (*session.DraftSession, error) {
	raw, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, errors.New("draft session not found in context")
	}
	sess, ok := raw.(*session.DraftSession)
	if !ok {
		return nil, errors.New("invalid draft session type in context")
	}
	return sess, nil
}
