package services

import (
	"context"
	"fmt"

	"kanmind/backend/internal/models"
	"kanmind/backend/internal/repositories"
)

const (
	taskTitleMax       = 100
	taskDescriptionMax = 255
)

// TaskInput is the body of task create and update requests. Every field is
// optional so that update can tell an omitted field from an explicit null.
type TaskInput struct {
	Board       Optional[uint]                `json:"board"`
	Title       Optional[string]              `json:"title"`
	Description Optional[string]              `json:"description"`
	Status      Optional[models.TaskStatus]   `json:"status"`
	Priority    Optional[models.TaskPriority] `json:"priority"`
	AssigneeID  Optional[uint]                `json:"assignee_id"`
	ReviewerID  Optional[uint]                `json:"reviewer_id"`
	DueDate     Optional[string]              `json:"due_date"`
}

type TaskService interface {
	Create(ctx context.Context, userID uint, input TaskInput) (*TaskView, error)
	Get(ctx context.Context, userID, taskID uint) (*TaskView, error)
	Update(ctx context.Context, userID, taskID uint, input TaskInput) (*TaskView, error)
	Delete(ctx context.Context, userID, taskID uint) error
	AssignedToMe(ctx context.Context, userID uint) ([]TaskView, error)
	Reviewing(ctx context.Context, userID uint) ([]TaskView, error)
}

type TaskServiceImpl struct {
	tasks  *repositories.TaskRepository
	boards *repositories.BoardRepository
	users  *repositories.UserRepository
	authz  *Authorizer
}

func NewTaskService(tasks *repositories.TaskRepository, boards *repositories.BoardRepository, users *repositories.UserRepository, authz *Authorizer) *TaskServiceImpl {
	return &TaskServiceImpl{tasks: tasks, boards: boards, users: users, authz: authz}
}

// taskChanges is the validated form of a TaskInput. Only fields present in
// the input end up in columns.
type taskChanges struct {
	columns map[string]interface{}
	userIDs map[string]uint
}

func (s *TaskServiceImpl) validate(ctx context.Context, input TaskInput, creating bool) (*taskChanges, error) {
	v := &ValidationError{}
	changes := &taskChanges{columns: make(map[string]interface{}), userIDs: make(map[string]uint)}

	if title, ok := requiredText(v, "title", input.Title, taskTitleMax, creating); ok {
		changes.columns["title"] = title
	}

	if input.Description.Set {
		if input.Description.Null {
			changes.columns["description"] = nil
		} else if description, ok := cleanText(v, "description", input.Description.Value, taskDescriptionMax, true); ok {
			changes.columns["description"] = description
		}
	}

	if input.Status.Set {
		switch {
		case input.Status.Null:
			v.Add("status", msgNotNull)
		case !input.Status.Value.Valid():
			v.Add("status", fmt.Sprintf("%q is not a valid choice.", input.Status.Value))
		default:
			changes.columns["status"] = input.Status.Value
		}
	}

	if input.Priority.Set {
		switch {
		case input.Priority.Null:
			v.Add("priority", msgNotNull)
		case !input.Priority.Value.Valid():
			v.Add("priority", fmt.Sprintf("%q is not a valid choice.", input.Priority.Value))
		default:
			changes.columns["priority"] = input.Priority.Value
		}
	}

	if input.DueDate.Set {
		if input.DueDate.Null {
			changes.columns["due_date"] = nil
		} else if due, err := models.ParseDate(input.DueDate.Value); err != nil {
			v.Add("due_date", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		} else {
			changes.columns["due_date"] = due
		}
	}

	for field, o := range map[string]Optional[uint]{"assignee_id": input.AssigneeID, "reviewer_id": input.ReviewerID} {
		switch {
		case !o.Set:
		case o.Null:
			changes.columns[field] = nil
		default:
			changes.columns[field] = o.Value
			changes.userIDs[field] = o.Value
		}
	}

	if err := v.OrNil(); err != nil {
		return nil, err
	}

	for field, id := range changes.userIDs {
		_, missing, err := s.users.FindByIDs(ctx, []uint{id})
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			v.Add(field, invalidPKMessage(id))
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return changes, nil
}

// Create resolves the board named in the payload, checks membership and
// stores the task with the acting user as its creator.
func (s *TaskServiceImpl) Create(ctx context.Context, userID uint, input TaskInput) (*TaskView, error) {
	if !input.Board.Set || input.Board.Null {
		return nil, fmt.Errorf("%w: task payload names no board", ErrNotFound)
	}
	board, err := s.boards.GetWithMembers(ctx, input.Board.Value)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.authz.Authorize(ctx, userID, ResourceTask, 0, VerbMutate, Subject{Board: board}); err != nil {
		return nil, err
	}

	changes, err := s.validate(ctx, input, true)
	if err != nil {
		return nil, err
	}

	task := &models.Task{BoardID: board.ID, CreatorID: userID}
	applyTaskColumns(task, changes.columns)
	task.ApplyDefaults()

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, translate(err)
	}
	return s.view(ctx, task.ID)
}

func applyTaskColumns(task *models.Task, columns map[string]interface{}) {
	for column, value := range columns {
		switch column {
		case "title":
			task.Title = value.(string)
		case "description":
			if value != nil {
				description := value.(string)
				task.Description = &description
			}
		case "status":
			task.Status = value.(models.TaskStatus)
		case "priority":
			task.Priority = value.(models.TaskPriority)
		case "due_date":
			if value != nil {
				due := value.(models.Date)
				task.DueDate = &due
			}
		case "assignee_id":
			if value != nil {
				id := value.(uint)
				task.AssigneeID = &id
			}
		case "reviewer_id":
			if value != nil {
				id := value.(uint)
				task.ReviewerID = &id
			}
		}
	}
}

func (s *TaskServiceImpl) view(ctx context.Context, taskID uint) (*TaskView, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, translate(err)
	}
	view := NewTaskView(task)
	return &view, nil
}

// load resolves the task and the board that scopes it.
func (s *TaskServiceImpl) load(ctx context.Context, taskID uint) (*models.Task, *models.Board, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, translate(err)
	}
	board, err := s.boards.GetWithMembers(ctx, task.BoardID)
	if err != nil {
		return nil, nil, translate(err)
	}
	return task, board, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, userID, taskID uint) (*TaskView, error) {
	task, board, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, userID, ResourceTask, taskID, VerbSafe, Subject{Board: board, Task: task}); err != nil {
		return nil, err
	}
	view := NewTaskView(task)
	return &view, nil
}

// Update is authorized against the board the task belongs to. A payload
// naming another board is rejected because a task never moves.
func (s *TaskServiceImpl) Update(ctx context.Context, userID, taskID uint, input TaskInput) (*TaskView, error) {
	task, board, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, userID, ResourceTask, taskID, VerbMutate, Subject{Board: board, Task: task}); err != nil {
		return nil, err
	}

	if input.Board.Set && (input.Board.Null || input.Board.Value != task.BoardID) {
		return nil, NewValidationError("board", "The board of a task cannot be changed.")
	}

	changes, err := s.validate(ctx, input, false)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Update(ctx, taskID, changes.columns); err != nil {
		return nil, translate(err)
	}
	return s.view(ctx, taskID)
}

func (s *TaskServiceImpl) Delete(ctx context.Context, userID, taskID uint) error {
	task, board, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, userID, ResourceTask, taskID, VerbDelete, Subject{Board: board, Task: task}); err != nil {
		return err
	}
	return translate(s.tasks.Delete(ctx, taskID))
}

func (s *TaskServiceImpl) AssignedToMe(ctx context.Context, userID uint) ([]TaskView, error) {
	tasks, err := s.tasks.AssignedTo(ctx, userID)
	if err != nil {
		return nil, err
	}
	return taskViews(tasks), nil
}

func (s *TaskServiceImpl) Reviewing(ctx context.Context, userID uint) ([]TaskView, error) {
	tasks, err := s.tasks.ReviewedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return taskViews(tasks), nil
}
