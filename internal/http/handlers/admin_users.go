package handlers

import (
	"context"
	"net/http"

	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/http/middlewares"
	"github.com/booali9/obe-comiler-backend/internal/service"
	"github.com/gin-gonic/gin"
)

type AdminUsersAPI interface {
	List(ctx context.Context, limit, offset int) ([]user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, name, role *string) (user.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// AdminUsersHandler serves the admin-only user management endpoints. User
// creation reuses the signup flow with the caller's role attached, which
// is what allows assigning roles other than teacher.
type AdminUsersHandler struct {
	svc  AdminUsersAPI
	auth AuthAPI
}

func NewAdminUsersHandler(svc AdminUsersAPI, auth AuthAPI) *AdminUsersHandler {
	return &AdminUsersHandler{svc: svc, auth: auth}
}

type AdminCreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=admin teacher"`
}

type AdminUpdateUserRequest struct {
	Name *string `json:"name"`
	Role *string `json:"role" binding:"omitempty,oneof=admin teacher"`
}

func (h *AdminUsersHandler) Create(ctx *gin.Context) {
	var req AdminCreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	actorRole, _ := middlewares.RoleFromContext(ctx)

	u, err := h.auth.Signup(ctx.Request.Context(), service.SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		ActorRole: actorRole,
	})

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AdminUsersHandler) List(ctx *gin.Context) {
	limit, offset := pagination(ctx)

	users, err := h.svc.List(ctx.Request.Context(), limit, offset)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminUsersHandler) Get(ctx *gin.Context) {
	u, err := h.svc.Get(ctx.Request.Context(), ctx.Param("id"))

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AdminUsersHandler) Update(ctx *gin.Context) {
	var req AdminUpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.svc.Update(ctx.Request.Context(), ctx.Param("id"), req.Name, req.Role)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AdminUsersHandler) Deactivate(ctx *gin.Context) {
	if err := h.svc.SetActive(ctx.Request.Context(), ctx.Param("id"), false); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AdminUsersHandler) Reactivate(ctx *gin.Context) {
	if err := h.svc.SetActive(ctx.Request.Context(), ctx.Param("id"), true); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
