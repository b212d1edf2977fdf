package services

import (
	"context"
	"encoding/json"

	"kanmind/backend/internal/models"
	"kanmind/backend/internal/repositories"
)

const boardTitleMax = 50

type CreateBoardInput struct {
	Title   Optional[string] `json:"title"`
	Members json.RawMessage  `json:"members"`
}

type UpdateBoardInput struct {
	Title   Optional[string] `json:"title"`
	Members json.RawMessage  `json:"members"`
}

type BoardService interface {
	List(ctx context.Context, userID uint) ([]BoardSummary, error)
	Create(ctx context.Context, userID uint, input CreateBoardInput) (*BoardSummary, error)
	Get(ctx context.Context, userID, boardID uint) (*BoardDetail, error)
	Update(ctx context.Context, userID, boardID uint, input UpdateBoardInput) (*BoardPatch, error)
	Delete(ctx context.Context, userID, boardID uint) error
}

type BoardServiceImpl struct {
	boards *repositories.BoardRepository
	users  *repositories.UserRepository
	authz  *Authorizer
}

func NewBoardService(boards *repositories.BoardRepository, users *repositories.UserRepository, authz *Authorizer) *BoardServiceImpl {
	return &BoardServiceImpl{boards: boards, users: users, authz: authz}
}

func (s *BoardServiceImpl) List(ctx context.Context, userID uint) ([]BoardSummary, error) {
	boards, err := s.boards.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BoardSummary, 0, len(boards))
	for i := range boards {
		out = append(out, NewBoardSummary(&boards[i]))
	}
	return out, nil
}

// resolveMembers turns a raw members payload into users. A nil slice means
// the payload had no members field.
func (s *BoardServiceImpl) resolveMembers(ctx context.Context, raw json.RawMessage) ([]models.User, error) {
	ids, err := ParseMemberIDs(raw)
	if err != nil || ids == nil {
		return nil, err
	}
	users, missing, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, missingPKError("members", missing)
	}
	return users, nil
}

func (s *BoardServiceImpl) Create(ctx context.Context, userID uint, input CreateBoardInput) (*BoardSummary, error) {
	v := &ValidationError{}
	title, _ := requiredText(v, "title", input.Title, boardTitleMax, true)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	members, err := s.resolveMembers(ctx, input.Members)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.User{}
	}

	board := &models.Board{Title: title, OwnerID: userID}
	if err := s.boards.Create(ctx, board, members); err != nil {
		return nil, translate(err)
	}
	summary := NewBoardSummary(board)
	return &summary, nil
}

func (s *BoardServiceImpl) Get(ctx context.Context, userID, boardID uint) (*BoardDetail, error) {
	board, err := s.boards.GetDetail(ctx, boardID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.authz.Authorize(ctx, userID, ResourceBoard, boardID, VerbSafe, Subject{Board: board}); err != nil {
		return nil, err
	}
	detail := NewBoardDetail(board)
	return &detail, nil
}

func (s *BoardServiceImpl) Update(ctx context.Context, userID, boardID uint, input UpdateBoardInput) (*BoardPatch, error) {
	board, err := s.boards.GetWithMembers(ctx, boardID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.authz.Authorize(ctx, userID, ResourceBoard, boardID, VerbMutate, Subject{Board: board}); err != nil {
		return nil, err
	}

	v := &ValidationError{}
	var title *string
	if cleaned, ok := requiredText(v, "title", input.Title, boardTitleMax, false); ok {
		title = &cleaned
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	members, err := s.resolveMembers(ctx, input.Members)
	if err != nil {
		return nil, err
	}

	if err := s.boards.Update(ctx, board, title, members); err != nil {
		return nil, translate(err)
	}

	updated, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, translate(err)
	}
	patch := NewBoardPatch(updated)
	return &patch, nil
}

func (s *BoardServiceImpl) Delete(ctx context.Context, userID, boardID uint) error {
	board, err := s.boards.GetWithMembers(ctx, boardID)
	if err != nil {
		return translate(err)
	}
	if err := s.authz.Authorize(ctx, userID, ResourceBoard, boardID, VerbDelete, Subject{Board: board}); err != nil {
		return err
	}
	return translate(s.boards.Delete(ctx, boardID))
}
