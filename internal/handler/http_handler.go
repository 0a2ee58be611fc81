package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

// Handler serves the directory API.
type Handler struct {
	directory service.DirectoryService
}

func NewHandler(directory service.DirectoryService) *Handler {
	return &Handler{directory: directory}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/register", h.Register)
	r.GET("/users", h.ListUsers)
	r.GET("/health", h.Health)
}

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, "Invalid request body")
		return
	}
	c.Set(log.FieldUsername, req.Username)

	if _, err := h.directory.Register(ctx, &req); err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameRequired):
			response.BadRequest(c, "Username is required")
		case errors.Is(err, service.ErrUsernameTooLong):
			response.BadRequest(c, "Username is too long")
		case errors.Is(err, service.ErrUsernameTaken):
			response.Conflict(c, "Username already exists")
		default:
			l.Error().Err(err).Msg("register failed")
			response.InternalError(c, "Server error")
		}
		return
	}

	response.Message(c, "User registered successfully")
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.directory.ListUsers(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("list users failed")
		response.InternalError(c, "Server error")
		return
	}

	resp := make([]domain.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, u.ToResponse())
	}
	response.Success(c, resp)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
