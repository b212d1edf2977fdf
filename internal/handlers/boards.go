package handlers

import (
	"net/http"

	"kanmind/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type BoardHandler struct {
	boardService services.BoardService
}

func NewBoardHandler(boardService services.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

func (h *BoardHandler) ListBoards(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	boards, err := h.boardService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var input services.CreateBoardInput
	if err := bindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	board, err := h.boardService.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, board)
}

func (h *BoardHandler) GetBoard(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	boardID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	board, err := h.boardService.Get(c.Request.Context(), userID, boardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	boardID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var input services.UpdateBoardInput
	if err := bindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	board, err := h.boardService.Update(c.Request.Context(), userID, boardID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	boardID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.boardService.Delete(c.Request.Context(), userID, boardID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
