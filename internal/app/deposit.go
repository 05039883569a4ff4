package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/metrics"
	"github.com/omamori-dev/omamori-linebot-go/internal/modules/family"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/sentry"
)

// LinePusher is the part of the Messaging API used to announce deposits.
// *messaging_api.MessagingApiAPI satisfies it.
type LinePusher interface {
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
	GetGroupMemberProfile(groupID, userID string) (*messaging_api.GroupUserProfileResponse, error)
}

type depositRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

type depositResponse struct {
	GroupID     string   `json:"group_id"`
	TotalSaved  int64    `json:"total_saved"`
	SavingsGoal int64    `json:"savings_goal"`
	Members     []string `json:"members"`
}

// depositHandler serves POST /api/v1/families/:groupID/deposits.
type depositHandler struct {
	families  *family.Service
	filler    *responder.Filler
	line      LinePusher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	maxAmount int64
	sender    func() *messaging_api.Sender
}

func (h *depositHandler) handle(c *gin.Context) {
	groupID := c.Param("groupID")

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordDeposit("invalid", 0)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Amount <= 0 || (h.maxAmount > 0 && req.Amount > h.maxAmount) {
		h.metrics.RecordDeposit("invalid", 0)
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount out of range"})
		return
	}

	ctx := ctxutil.WithChatID(c.Request.Context(), groupID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)
	log := h.logger.WithField("group_id", groupID).WithField("amount", req.Amount)

	group, reached, err := h.families.Deposit(ctx, groupID, req.UserID, req.Amount)
	switch {
	case errors.Is(err, domerrors.ErrNotFound):
		h.metrics.RecordDeposit("not_found", 0)
		c.JSON(http.StatusNotFound, gin.H{"error": "family not found"})
		return
	case errors.Is(err, domerrors.ErrInvalidInput):
		h.metrics.RecordDeposit("invalid", 0)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.WithError(err).ErrorContext(ctx, "Failed to record deposit")
		sentry.CaptureError(ctx, err)
		h.metrics.RecordDeposit("error", 0)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.metrics.RecordDeposit("success", req.Amount)
	log.WithField("total_saved", group.TotalSaved).
		WithField("goal_reached", reached).
		InfoContext(ctx, "Deposit recorded")

	// The push is best-effort; the deposit is already stored.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.DepositPush)
	defer cancel()
	name := h.displayName(pushCtx, log, groupID, req.UserID)
	h.push(pushCtx, log, groupID, family.DepositMessage(h.filler, group, name, req.Amount, reached, h.sender()))

	c.JSON(http.StatusOK, depositResponse{
		GroupID:     group.GroupID,
		TotalSaved:  group.TotalSaved,
		SavingsGoal: group.SavingsGoal,
		Members:     group.Members,
	})
}

// displayName returns "" when the profile is unavailable, for example when
// the user has not added the bot or the chat is a room.
func (h *depositHandler) displayName(ctx context.Context, log *logger.Logger, groupID, userID string) string {
	if h.line == nil || userID == "" {
		return ""
	}
	profile, err := h.line.GetGroupMemberProfile(groupID, userID)
	if err != nil {
		log.WithError(err).DebugContext(ctx, "Group member profile unavailable")
		return ""
	}
	return profile.DisplayName
}

func (h *depositHandler) push(ctx context.Context, log *logger.Logger, groupID string, msgs []messaging_api.MessageInterface) {
	if h.line == nil {
		return
	}
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := h.line.PushMessage(&messaging_api.PushMessageRequest{
			To:       groupID,
			Messages: msgs,
		}, uuid.NewString())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).WarnContext(ctx, "Failed to push deposit message")
			h.metrics.RecordHTTPError("push_failed", "deposit")
			return
		}
		log.WithField("duration_ms", time.Since(start).Milliseconds()).DebugContext(ctx, "Deposit message pushed")
	case <-ctx.Done():
		log.WarnContext(ctx, "Deposit push timed out")
		h.metrics.RecordHTTPError("push_timeout", "deposit")
	}
}
