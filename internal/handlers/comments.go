package handlers

import (
	"net/http"

	"kanmind/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService services.CommentService
}

func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	comments, err := h.commentService.List(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var input services.CommentInput
	if err := bindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), userID, taskID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment only lets the author remove a comment.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	commentID, err := pathID(c, "comment_id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), userID, taskID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
