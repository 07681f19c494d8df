package handlers

import (
	"context"
	"net/http"

	"github.com/booali9/obe-comiler-backend/internal/auth"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/http/middlewares"
	"github.com/booali9/obe-comiler-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthAPI is the credential-lifecycle surface the handler needs. Small on
// purpose so tests can fake it.
type AuthAPI interface {
	Signup(ctx context.Context, in service.SignupInput) (user.User, error)
	Login(ctx context.Context, email, password string) (string, user.User, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, userID, tokenJTI, newPassword string) (string, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error)
}

type AuthHandler struct {
	svc AuthAPI
	jwt *auth.Manager
}

func NewAuthHandler(svc AuthAPI, jwtManager *auth.Manager) *AuthHandler {
	return &AuthHandler{
		svc: svc,
		jwt: jwtManager,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.svc.Signup(ctx.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	// signup doubles as first login
	token, err := h.jwt.GenerateSessionToken(u.ID, u.Email, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	token, u, err := h.svc.Login(ctx.Request.Context(), req.Email, req.Password)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := h.svc.ForgotPassword(ctx.Request.Context(), req.Email); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "OTP sent to email",
	})
}

func (h *AuthHandler) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest

	if !BindJSON(ctx, &req) {
		return
	}

	resetToken, err := h.svc.VerifyOTP(ctx.Request.Context(), req.Email, req.OTP)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"resetToken": resetToken,
	})
}

// ResetPassword runs behind RequireResetToken, which stashes the verified
// identity and token ID on the context.
func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	jti, jok := middlewares.ResetJTIFromContext(ctx)

	if !ok || !jok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	token, err := h.svc.ResetPassword(ctx.Request.Context(), userID, jti, req.Password)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	token, err := h.svc.ChangePassword(ctx.Request.Context(), userID, req.CurrentPassword, req.NewPassword)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}
