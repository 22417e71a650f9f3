package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messaging-service/internal/auth"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// TokenIssuer signs tokens for an identity. A zero ttl means the default lifetime.
type TokenIssuer interface {
	Issue(id auth.Identity, ttl time.Duration) (string, error)
}

// IdentityAsserter resolves a claimed (email, name) pair to a stored identity.
type IdentityAsserter interface {
	Assert(ctx context.Context, email, name string) (auth.Identity, error)
}

type credentialsRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

type tokenResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// UserHandler serves registration, login and the user directory.
type UserHandler struct {
	users    repositories.UserRepository
	identity IdentityAsserter
	tokens   TokenIssuer
	policy   repositories.ListPolicy
	audit    *telemetry.AuditEmitter
	log      *zap.Logger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, identity IdentityAsserter, tokens TokenIssuer, policy repositories.ListPolicy, audit *telemetry.AuditEmitter, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{
		users:    users,
		identity: identity,
		tokens:   tokens,
		policy:   policy,
		audit:    audit,
		log:      log,
	}
}

// Login exchanges a matching (email, name) pair for a token.
func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.identity.Assert(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondWithToken(c, id, telemetry.EventLogin)
}

// CreateUser registers a user and logs them in.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondWithToken(c, auth.IdentityOf(user), telemetry.EventUserCreated)
}

func (h *UserHandler) respondWithToken(c *gin.Context, id auth.Identity, event string) {
	token, err := h.tokens.Issue(id, 0)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	emitAudit(c, h.audit, event, &id.UserID, map[string]any{"email": id.Email})
	c.JSON(http.StatusOK, tokenResponse{ID: id.UserID.String(), Email: id.Email, Token: token})
}

// ListUsers returns every user, oldest first.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err == nil {
		err = h.policy.Check(len(users))
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes the caller's own account along with its messages and
// deliveries. The route guard guarantees the id is the caller's.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	emitAudit(c, h.audit, telemetry.EventUserDeleted, &id, nil)
	c.Status(http.StatusNoContent)
}
