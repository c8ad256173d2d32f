package http

import (
	"errors"
	"net/http"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/account/models"
	"topup-bot-backend/internal/features/account/repository"
	authservice "topup-bot-backend/internal/features/auth/service"
	catalogservice "topup-bot-backend/internal/features/catalog/service"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	"topup-bot-backend/internal/service/notifier"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// AdminHandler mirrors the owner's chat commands for operators:
// maintenance flags, price overrides, the authorized set and account
// inspection. Mutations go through the same services as the chat
// surface, acting as the owner.
type AdminHandler struct {
	accounts    repository.AccountRepository
	auth        authservice.AuthService
	switchboard maintenance.SwitchboardService
	catalog     catalogservice.CatalogService
	deliveries  notifier.FailureCounter
	ownerID     string
}

func NewAdminHandler(
	accounts repository.AccountRepository,
	auth authservice.AuthService,
	switchboard maintenance.SwitchboardService,
	catalog catalogservice.CatalogService,
	deliveries notifier.FailureCounter,
	ownerID string,
) *AdminHandler {
	return &AdminHandler{
		accounts:    accounts,
		auth:        auth,
		switchboard: switchboard,
		catalog:     catalog,
		deliveries:  deliveries,
		ownerID:     ownerID,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/maintenance", h.getFlags)
	router.PUT("/maintenance/:feature", h.setFlag)

	router.GET("/prices", h.getPrices)
	router.PUT("/prices/:code", h.setPrice)
	router.DELETE("/prices/:code", h.clearPrice)

	router.GET("/authorized", h.getAuthorized)
	router.POST("/authorized/:id", h.authorize)
	router.DELETE("/authorized/:id", h.revoke)

	router.GET("/accounts", h.listAccounts)
	router.GET("/accounts/:id", h.getAccount)

	router.GET("/stats", h.getStats)
}

func (h *AdminHandler) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notification_failures": h.deliveries.Failures(),
	})
}

func (h *AdminHandler) getFlags(c *gin.Context) {
	c.JSON(http.StatusOK, h.switchboard.Flags(c.Request.Context()))
}

type setFlagRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *AdminHandler) setFlag(c *gin.Context) {
	var req setFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}
	if err := h.switchboard.SetFlag(c.Request.Context(), c.Param("feature"), *req.Enabled); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feature": c.Param("feature"), "enabled": *req.Enabled})
}

func (h *AdminHandler) getPrices(c *gin.Context) {
	list, err := h.catalog.PriceList(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type setPriceRequest struct {
	Price *int64 `json:"price" binding:"required"`
}

func (h *AdminHandler) setPrice(c *gin.Context) {
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "price is required"})
		return
	}
	if err := h.catalog.SetPrice(c.Request.Context(), c.Param("code"), *req.Price); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_code": c.Param("code"), "price": *req.Price})
}

func (h *AdminHandler) clearPrice(c *gin.Context) {
	if err := h.catalog.ClearPrice(c.Request.Context(), c.Param("code")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) getAuthorized(c *gin.Context) {
	ids, err := h.auth.AuthorizedIDs(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorized_ids": ids})
}

func (h *AdminHandler) authorize(c *gin.Context) {
	if err := h.auth.Authorize(c.Request.Context(), h.ownerID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": c.Param("id"), "authorized": true})
}

func (h *AdminHandler) revoke(c *gin.Context) {
	if err := h.auth.Revoke(c.Request.Context(), h.ownerID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": c.Param("id"), "authorized": false})
}

// accountSummary keeps the list endpoint small; the detail endpoint
// returns the full document.
type accountSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Balance  int64  `json:"balance"`
	Orders   int    `json:"orders"`
	Topups   int    `json:"topups"`
	Pending  int    `json:"pending_topups"`
}

func (h *AdminHandler) listAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	summaries := lo.Map(accounts, func(a *models.Account, _ int) accountSummary {
		return accountSummary{
			ID:      a.ID,
			Name:    a.Name,
			Balance: a.Balance,
			Orders:  len(a.Orders),
			Topups:  len(a.Topups),
			Pending: len(a.PendingTopups()),
		}
	})
	c.JSON(http.StatusOK, gin.H{"accounts": summaries})
}

func (h *AdminHandler) getAccount(c *gin.Context) {
	account, err := h.accounts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func abortWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(statusFor(appErr.Code), gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeAlreadyInState:
		return http.StatusConflict
	case apperrors.ErrCodeInvalidAmount:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
