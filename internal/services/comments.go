package services

import (
	"context"

	"kanmind/backend/internal/models"
	"kanmind/backend/internal/repositories"
)

const commentContentMax = 255

type CommentInput struct {
	Content Optional[string] `json:"content"`
}

type CommentService interface {
	List(ctx context.Context, userID, taskID uint) ([]CommentView, error)
	Create(ctx context.Context, userID, taskID uint, input CommentInput) (*CommentView, error)
	Delete(ctx context.Context, userID, taskID, commentID uint) error
}

type CommentServiceImpl struct {
	comments *repositories.CommentRepository
	tasks    *repositories.TaskRepository
	boards   *repositories.BoardRepository
	authz    *Authorizer
}

func NewCommentService(comments *repositories.CommentRepository, tasks *repositories.TaskRepository, boards *repositories.BoardRepository, authz *Authorizer) *CommentServiceImpl {
	return &CommentServiceImpl{comments: comments, tasks: tasks, boards: boards, authz: authz}
}

// boardOfTask resolves the board scoping the task's comments.
func (s *CommentServiceImpl) boardOfTask(ctx context.Context, taskID uint) (*models.Board, error) {
	boardID, err := s.tasks.BoardIDOf(ctx, taskID)
	if err != nil {
		return nil, translate(err)
	}
	board, err := s.boards.GetWithMembers(ctx, boardID)
	if err != nil {
		return nil, translate(err)
	}
	return board, nil
}

func (s *CommentServiceImpl) List(ctx context.Context, userID, taskID uint) ([]CommentView, error) {
	board, err := s.boardOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, userID, ResourceComment, taskID, VerbSafe, Subject{Board: board}); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]CommentView, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentView(&comments[i]))
	}
	return out, nil
}

func (s *CommentServiceImpl) Create(ctx context.Context, userID, taskID uint, input CommentInput) (*CommentView, error) {
	board, err := s.boardOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, userID, ResourceComment, taskID, VerbMutate, Subject{Board: board}); err != nil {
		return nil, err
	}

	v := &ValidationError{}
	content, _ := requiredText(v, "content", input.Content, commentContentMax, true)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	comment := &models.Comment{TaskID: taskID, AuthorID: userID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, translate(err)
	}
	view := NewCommentView(comment)
	return &view, nil
}

// Delete allows only the comment's author, whatever their role on the board.
func (s *CommentServiceImpl) Delete(ctx context.Context, userID, taskID, commentID uint) error {
	if _, err := s.tasks.BoardIDOf(ctx, taskID); err != nil {
		return translate(err)
	}
	comment, err := s.comments.GetForTask(ctx, taskID, commentID)
	if err != nil {
		return translate(err)
	}
	if err := s.authz.Authorize(ctx, userID, ResourceComment, commentID, VerbDelete, Subject{Comment: comment}); err != nil {
		return err
	}
	return translate(s.comments.Delete(ctx, commentID))
}
