package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/auth"
	"messaging-service/internal/observability"
)

const (
	userIDKey   = "userID"
	identityKey = "identity"
)

// TokenVerifier checks a bearer token and returns the identity it binds.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Policy describes who may reach a route.
type Policy struct {
	RequiresAuth bool
	// SelfParam names a path parameter that must equal the caller's user id.
	// Only meaningful when RequiresAuth is set.
	SelfParam string
}

var (
	Public        = Policy{}
	Authenticated = Policy{RequiresAuth: true}
)

// SelfScope requires authentication and that the named path parameter is the
// caller's own id.
func SelfScope(param string) Policy {
	return Policy{RequiresAuth: true, SelfParam: param}
}

// Guard enforces p using verifier. On success the caller's id is stored under
// "userID" as a uuid.UUID.
func Guard(verifier TokenVerifier, p Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.RequiresAuth {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			observability.IncTokenVerification("missing")
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			msg, result := "Invalid token", "invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg, result = "Token expired", "expired"
			}
			observability.IncTokenVerification(result)
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		observability.IncTokenVerification("ok")

		if p.SelfParam != "" {
			target, err := uuid.Parse(c.Param(p.SelfParam))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.SelfParam})
				return
			}
			if target != identity.UserID {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		c.Set(userIDKey, identity.UserID)
		c.Set(identityKey, identity)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// CurrentUserID returns the id the guard attached to the request.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// SetCurrentUser attaches id as the authenticated caller. Tests use it to
// bypass token verification.
func SetCurrentUser(c *gin.Context, id uuid.UUID) {
	c.Set(userIDKey, id)
}
