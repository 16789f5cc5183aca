package provider

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dhawalhost/dirsync/internal/adapter"
	"github.com/dhawalhost/dirsync/internal/record"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// HTTPHandler exposes the provider operations to the host identity
// provider over HTTP.
type HTTPHandler struct {
	svc      *Provider
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc *Provider, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the provider routes. syncMiddleware is
// applied to the sync trigger endpoints only.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter, syncMiddleware ...gin.HandlerFunc) {
	router.GET("/healthz", h.health)

	users := router.Group("/users")
	{
		users.GET("/count", h.usersCount)
		users.GET("/:id", h.getUserByID)
		users.GET("", h.queryUsers) // /users?username=... | ?email=... | ?search=...
		users.POST("", h.addUser)
		users.DELETE("/:id", h.removeUser)
	}

	creds := router.Group("/credentials")
	{
		creds.POST("/verify", h.verifyCredentials)
		creds.PUT("", h.updateCredential)
		creds.DELETE("", h.disableCredential)
		creds.GET("/types", h.credentialTypes)
	}

	syncRoutes := router.Group("/sync", syncMiddleware...)
	{
		syncRoutes.POST("/full", h.syncFull)
		syncRoutes.POST("/changed", h.syncChanged)
	}
}

// UserResponse is the identity-provider-shaped view of one record.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Status      string `json:"status,omitempty"`
	MobilePhone string `json:"mobile_phone,omitempty"`
	OfficePhone string `json:"office_phone,omitempty"`
	CreatedAt   int64  `json:"created_timestamp"`
	HasPassword bool   `json:"has_password"`
}

// AddUserRequest registers a new directory user.
type AddUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=190"`
}

// CredentialRequest carries a username/password pair.
type CredentialRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// DisableCredentialRequest clears a credential of the given type.
type DisableCredentialRequest struct {
	Username string `json:"username" validate:"required"`
	Type     string `json:"type" validate:"required"`
}

// SyncResponse reports one sync run's counters.
type SyncResponse struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) usersCount(c *gin.Context) {
	count, err := h.svc.UsersCount(c.Request.Context())
	if err != nil {
		h.fail(c, "count users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *HTTPHandler) getUserByID(c *gin.Context) {
	user, err := h.svc.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get user by id", err)
		return
	}
	c.JSON(http.StatusOK, h.userResponse(c.Request.Context(), user))
}

func (h *HTTPHandler) queryUsers(c *gin.Context) {
	ctx := c.Request.Context()

	if username := c.Query("username"); username != "" {
		user, err := h.svc.GetUserByUsername(ctx, username)
		if err != nil {
			h.fail(c, "get user by username", err)
			return
		}
		c.JSON(http.StatusOK, h.userResponse(ctx, user))
		return
	}

	if email := c.Query("email"); email != "" {
		user, err := h.svc.GetUserByEmail(ctx, email)
		if err != nil {
			h.fail(c, "get user by email", err)
			return
		}
		c.JSON(http.StatusOK, h.userResponse(ctx, user))
		return
	}

	pattern := c.DefaultQuery("search", "*")
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	users, err := h.svc.SearchUsers(ctx, pattern, offset, limit)
	if err != nil {
		h.fail(c, "search users", err)
		return
	}

	out := make([]UserResponse, len(users))
	for i, user := range users {
		out[i] = h.userResponse(ctx, user)
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (h *HTTPHandler) addUser(c *gin.Context) {
	var req AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.svc.AddUser(c.Request.Context(), req.Username)
	if err != nil {
		h.fail(c, "add user", err)
		return
	}
	c.JSON(http.StatusCreated, h.userResponse(c.Request.Context(), user))
}

func (h *HTTPHandler) removeUser(c *gin.Context) {
	removed, err := h.svc.RemoveUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "remove user", err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) verifyCredentials(c *gin.Context) {
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valid, err := h.svc.VerifyCredentials(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "verify credentials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *HTTPHandler) updateCredential(c *gin.Context) {
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.UpdateCredential(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "update credential", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *HTTPHandler) disableCredential(c *gin.Context) {
	var req DisableCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.DisableCredential(c.Request.Context(), req.Username, req.Type); err != nil {
		h.fail(c, "disable credential", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) credentialTypes(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	types, err := h.svc.DisableableCredentialTypes(c.Request.Context(), username)
	if err != nil {
		h.fail(c, "credential types", err)
		return
	}
	if types == nil {
		types = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

func (h *HTTPHandler) syncFull(c *gin.Context) {
	res, err := h.svc.SyncFull(c.Request.Context())
	if err != nil {
		h.logger.Error("full sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"result": SyncResponse(res),
		})
		return
	}
	c.JSON(http.StatusOK, SyncResponse(res))
}

func (h *HTTPHandler) syncChanged(c *gin.Context) {
	res, err := h.svc.SyncChanged(c.Request.Context())
	if err != nil {
		h.logger.Error("incremental sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"result": SyncResponse(res),
		})
		return
	}
	c.JSON(http.StatusOK, SyncResponse(res))
}

func (h *HTTPHandler) userResponse(ctx context.Context, a *adapter.Adapter) UserResponse {
	rec := a.Record()
	firstName, _ := a.FirstName(ctx)
	lastName, _ := a.LastName(ctx)
	return UserResponse{
		ID:          a.ID(),
		Username:    rec.Username,
		Email:       rec.Email,
		FirstName:   firstName,
		LastName:    lastName,
		Status:      rec.Status,
		MobilePhone: rec.MobilePhone,
		OfficePhone: rec.OfficePhone,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
		HasPassword: rec.HasPassword(),
	}
}

func (h *HTTPHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, record.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	h.logger.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
