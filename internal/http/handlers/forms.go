package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/booali9/obe-comiler-backend/internal/domain/form"
	"github.com/booali9/obe-comiler-backend/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type FormsAPI interface {
	Submit(ctx context.Context, req form.SubmitRequest) (form.Form, error)
	GetByID(ctx context.Context, actorID, actorRole, id string) (form.Form, error)
	Delete(ctx context.Context, actorID, actorRole, id string) error
	ListMine(ctx context.Context, teacherID string, limit, offset int) ([]form.Form, error)
	ListAll(ctx context.Context, limit, offset int) ([]form.Form, error)
	PresignAttachmentUpload(ctx context.Context) (string, string, error)
	AttachmentURL(ctx context.Context, actorID, actorRole, formID, kind string) (string, error)
	RequestExport(ctx context.Context, requestedBy string) error
}

type FormsHandler struct {
	svc FormsAPI
}

func NewFormsHandler(svc FormsAPI) *FormsHandler {
	return &FormsHandler{svc: svc}
}

func pagination(ctx *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	return limit, offset
}

func identity(ctx *gin.Context) (userID, role string, ok bool) {
	userID, ok = middlewares.UserIDFromContext(ctx)

	if !ok {
		return "", "", false
	}

	role, ok = middlewares.RoleFromContext(ctx)
	return userID, role, ok
}

func (h *FormsHandler) Submit(ctx *gin.Context) {
	userID, _, ok := identity(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req form.SubmitRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.TeacherID = userID

	f, err := h.svc.Submit(ctx.Request.Context(), req)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"form": f})
}

func (h *FormsHandler) ListMine(ctx *gin.Context) {
	userID, _, ok := identity(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	limit, offset := pagination(ctx)

	forms, err := h.svc.ListMine(ctx.Request.Context(), userID, limit, offset)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"forms": forms})
}

func (h *FormsHandler) Get(ctx *gin.Context) {
	userID, role, ok := identity(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	f, err := h.svc.GetByID(ctx.Request.Context(), userID, role, ctx.Param("id"))

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"form": f})
}

func (h *FormsHandler) Delete(ctx *gin.Context) {
	userID, role, ok := identity(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), userID, role, ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// UploadURL vends a presigned PUT target; the client uploads directly to
// the bucket and submits the returned key with its form.
func (h *FormsHandler) UploadURL(ctx *gin.Context) {
	key, url, err := h.svc.PresignAttachmentUpload(ctx.Request.Context())

	if err != nil {
		RespondInternal(ctx, "Could not prepare upload")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"key":       key,
		"uploadUrl": url,
	})
}

func (h *FormsHandler) Attachment(ctx *gin.Context) {
	userID, role, ok := identity(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	url, err := h.svc.AttachmentURL(ctx.Request.Context(), userID, role, ctx.Param("id"), ctx.Param("kind"))

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// Admin ops endpoints

func (h *FormsHandler) ListAll(ctx *gin.Context) {
	limit, offset := pagination(ctx)

	forms, err := h.svc.ListAll(ctx.Request.Context(), limit, offset)

	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"forms": forms})
}

func (h *FormsHandler) Export(ctx *gin.Context) {
	userID, _, ok := identity(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	if err := h.svc.RequestExport(ctx.Request.Context(), userID); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"status": "export_queued"})
}
