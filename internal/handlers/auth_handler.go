package handlers

import (
	"net/http"
	"strings"

	"revisionaid/internal/config"
	"revisionaid/internal/middleware"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/services"
	contextutils "revisionaid/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TokenIssuer issues and checks bearer tokens. *auth.TokenIssuer satisfies it.
type TokenIssuer interface {
	middleware.TokenVerifier
	Issue(p models.Principal) (string, error)
}

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	tokens      TokenIssuer
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, tokens TokenIssuer, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		config:      cfg,
		logger:      logger,
	}
}

// Signup creates a student account with its parent login and signs the student in.
func (h *AuthHandler) Signup(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "signup")
	defer observability.FinishSpan(span, nil)

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserEmail(req.UserEmail))

	user, err := h.userService.Signup(ctx, services.SignupRequest{
		UserEmail:      strings.TrimSpace(req.UserEmail),
		UserName:       strings.TrimSpace(req.UserName),
		UserPassword:   req.UserPassword,
		ParentEmail:    strings.TrimSpace(req.ParentEmail),
		ParentName:     strings.TrimSpace(req.ParentName),
		ParentPassword: req.ParentPassword,
		Course:         strings.TrimSpace(req.Course),
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	principal := models.Principal{Email: user.Email, Name: user.Name}
	h.startSession(c, http.StatusCreated, principal)
}

// Login signs in a student, or a parent when is_parent is set.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, err)
		return
	}
	email := strings.TrimSpace(string(req.Email))
	span.SetAttributes(
		observability.AttributeUserEmail(email),
		attribute.Bool("auth.is_parent", req.IsParent),
	)

	principal, err := h.userService.Authenticate(ctx, email, req.Password, req.IsParent)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.startSession(c, http.StatusOK, *principal)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, principal models.Principal) {
	ctx := c.Request.Context()
	if err := middleware.SavePrincipal(c, &principal); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"email": principal.Email})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	token, err := h.tokens.Issue(principal)
	if err != nil {
		h.logger.Error(ctx, "Failed to issue token", err, map[string]interface{}{"email": principal.Email})
		HandleAppError(c, err)
		return
	}

	c.JSON(status, AuthResponse{User: principal, Token: token})
}

// Logout clears the session cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	if err := middleware.ClearPrincipal(c); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// Status reports whether the caller is signed in and as whom.
func (h *AuthHandler) Status(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_status")
	defer observability.FinishSpan(span, nil)

	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, config.BearerPrefix) {
		if p, err := h.tokens.Verify(strings.TrimPrefix(header, config.BearerPrefix)); err == nil {
			c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: true, User: p})
			return
		}
	}

	if p, ok := middleware.SessionPrincipal(c); ok {
		c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: true, User: p})
		return
	}
	c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: false})
}
