package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/common"
	"github.com/finadvisor/platform/internal/inquiry"
)

type createThreadReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateChatThread(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createThreadReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	thread, err := h.ChatSvc.CreateThread(c.Request.Context(), uid, req.Title)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create thread")
		return
	}

	common.OK(c, gin.H{"thread_id": thread.ThreadID})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	threadID := c.Param("thread_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, threadID, limit, beforeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "thread not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}

type submitInquiryReq struct {
	ThreadID string `json:"thread_id" binding:"required"`
	Question string `json:"question" binding:"required"`
	Context  string `json:"context"`
}

// SubmitInquiry creates an inquiry and either queues it for the worker
// or, without a broker, runs the pipeline in-request.
func (h *Handler) SubmitInquiry(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req submitInquiryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if _, err := h.ChatSvc.ValidateThreadOwner(c.Request.Context(), uid, req.ThreadID); err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "thread not found")
		return
	}

	inq, err := h.Orchestrator.Submit(c.Request.Context(), inquiry.SubmitInput{
		ThreadID: req.ThreadID,
		UserID:   uid,
		Question: req.Question,
		Context:  req.Context,
	})
	if err != nil {
		var rejected *inquiry.RejectedError
		if errors.As(err, &rejected) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"code":    42201,
				"message": "question rejected",
				"data": gin.H{
					"reasons":  rejected.Verdict.Reasons,
					"category": rejected.Verdict.Category,
				},
			})
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to submit inquiry")
		return
	}

	if h.Publisher != nil {
		if err := h.Publisher.PublishInquiry(c.Request.Context(), inq.ID); err != nil {
			zap.L().Error("failed to queue inquiry", zap.String("inquiry_id", inq.ID), zap.Error(err))
			// No worker will ever see this inquiry; close it out so it
			// cannot sit PENDING forever.
			if err := h.InquiryRepo.MarkFailed(context.WithoutCancel(c.Request.Context()), inq.ID); err != nil {
				zap.L().Error("failed to mark unqueued inquiry FAILED",
					zap.String("inquiry_id", inq.ID), zap.Error(err))
			}
			common.Fail(c, http.StatusInternalServerError, 50004, "failed to queue inquiry")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"code":    0,
			"message": "queued",
			"data":    gin.H{"inquiry_id": inq.ID, "status": inq.Status},
		})
		return
	}

	ans, err := h.Orchestrator.Run(c.Request.Context(), inq.ID)
	if err != nil {
		if errors.Is(err, inquiry.ErrNoProvidersAvailable) || errors.Is(err, inquiry.ErrAllProvidersFailed) {
			common.Fail(c, http.StatusServiceUnavailable, 50301, "advisory service unavailable")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50005, "inquiry failed")
		return
	}

	common.OK(c, gin.H{
		"inquiry_id":  inq.ID,
		"status":      inquiry.StatusCompleted,
		"answer":      ans.Answer,
		"confidence":  ans.Confidence,
		"sources":     ans.SourceList(),
		"methodology": ans.Methodology,
	})
}

func (h *Handler) GetInquiry(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	inq, err := h.InquiryRepo.GetInquiryByID(c.Request.Context(), c.Param("inquiry_id"))
	if err != nil || inq.UserID != uid {
		common.Fail(c, http.StatusNotFound, 40005, "inquiry not found")
		return
	}

	resp := gin.H{
		"inquiry_id": inq.ID,
		"thread_id":  inq.ThreadID,
		"question":   inq.Question,
		"status":     inq.Status,
		"created_at": inq.CreatedAt,
	}

	if inq.Status == inquiry.StatusCompleted {
		if ans, err := h.InquiryRepo.GetConsolidatedByInquiry(c.Request.Context(), inq.ID); err == nil {
			resp["answer"] = ans.Answer
			resp["confidence"] = ans.Confidence
			resp["sources"] = ans.SourceList()
			resp["methodology"] = ans.Methodology
		}
		if ratings, err := h.InquiryRepo.ListRatingsByInquiry(c.Request.Context(), inq.ID); err == nil {
			resp["ratings"] = ratings
		}
	}

	common.OK(c, resp)
}
