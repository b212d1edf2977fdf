package services

import (
	"time"

	"kanmind/backend/internal/models"
)

type UserProfile struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

func NewUserProfile(user *models.User) UserProfile {
	return UserProfile{ID: user.ID, Email: user.Email, FullName: user.FullName()}
}

func profileOrNil(user *models.User) *UserProfile {
	if user == nil {
		return nil
	}
	profile := NewUserProfile(user)
	return &profile
}

func profiles(users []models.User) []UserProfile {
	out := make([]UserProfile, 0, len(users))
	for i := range users {
		out = append(out, NewUserProfile(&users[i]))
	}
	return out
}

func MemberCount(board *models.Board) int {
	return len(board.Members)
}

func TicketCount(board *models.Board) int {
	return len(board.Tasks)
}

func TasksToDoCount(board *models.Board) int {
	n := 0
	for _, task := range board.Tasks {
		if task.Status == models.StatusToDo {
			n++
		}
	}
	return n
}

func TasksHighPriorityCount(board *models.Board) int {
	n := 0
	for _, task := range board.Tasks {
		if task.Priority == models.PriorityHigh {
			n++
		}
	}
	return n
}

func CommentsCount(task *models.Task) int {
	return len(task.Comments)
}

// BoardSummary is the list and create representation of a board.
type BoardSummary struct {
	ID                 uint          `json:"id"`
	Title              string        `json:"title"`
	Members            []UserProfile `json:"members"`
	MemberCount        int           `json:"member_count"`
	TicketCount        int           `json:"ticket_count"`
	TasksToDoCount     int           `json:"tasks_to_do_count"`
	TasksHighPrioCount int           `json:"tasks_high_prio_count"`
	OwnerID            uint          `json:"owner_id"`
}

func NewBoardSummary(board *models.Board) BoardSummary {
	return BoardSummary{
		ID:                 board.ID,
		Title:              board.Title,
		Members:            profiles(board.Members),
		MemberCount:        MemberCount(board),
		TicketCount:        TicketCount(board),
		TasksToDoCount:     TasksToDoCount(board),
		TasksHighPrioCount: TasksHighPriorityCount(board),
		OwnerID:            board.OwnerID,
	}
}

// BoardDetail is the single-board representation including its tasks.
type BoardDetail struct {
	ID      uint          `json:"id"`
	Title   string        `json:"title"`
	OwnerID uint          `json:"owner_id"`
	Members []UserProfile `json:"members"`
	Tasks   []TaskView    `json:"tasks"`
}

func NewBoardDetail(board *models.Board) BoardDetail {
	tasks := make([]TaskView, 0, len(board.Tasks))
	for i := range board.Tasks {
		tasks = append(tasks, NewTaskView(&board.Tasks[i]))
	}
	return BoardDetail{
		ID:      board.ID,
		Title:   board.Title,
		OwnerID: board.OwnerID,
		Members: profiles(board.Members),
		Tasks:   tasks,
	}
}

// BoardPatch is returned after a board update. It names the owner and members
// explicitly and has no plain members key.
type BoardPatch struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	OwnerData   UserProfile   `json:"owner_data"`
	MembersData []UserProfile `json:"members_data"`
}

func NewBoardPatch(board *models.Board) BoardPatch {
	patch := BoardPatch{
		ID:          board.ID,
		Title:       board.Title,
		MembersData: profiles(board.Members),
	}
	if board.Owner != nil {
		patch.OwnerData = NewUserProfile(board.Owner)
	} else {
		patch.OwnerData = UserProfile{ID: board.OwnerID}
	}
	return patch
}

type TaskView struct {
	ID            uint                `json:"id"`
	Board         uint                `json:"board"`
	Title         string              `json:"title"`
	Description   *string             `json:"description"`
	Status        models.TaskStatus   `json:"status"`
	Priority      models.TaskPriority `json:"priority"`
	Assignee      *UserProfile        `json:"assignee"`
	Reviewer      *UserProfile        `json:"reviewer"`
	DueDate       *models.Date        `json:"due_date"`
	CommentsCount int                 `json:"comments_count"`
}

func NewTaskView(task *models.Task) TaskView {
	return TaskView{
		ID:            task.ID,
		Board:         task.BoardID,
		Title:         task.Title,
		Description:   task.Description,
		Status:        task.Status,
		Priority:      task.Priority,
		Assignee:      profileOrNil(task.Assignee),
		Reviewer:      profileOrNil(task.Reviewer),
		DueDate:       task.DueDate,
		CommentsCount: CommentsCount(task),
	}
}

func taskViews(tasks []models.Task) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskView(&tasks[i]))
	}
	return out
}

type CommentView struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
}

func NewCommentView(comment *models.Comment) CommentView {
	view := CommentView{
		ID:        comment.ID,
		CreatedAt: comment.CreatedAt,
		Content:   comment.Content,
	}
	if comment.Author != nil {
		view.Author = comment.Author.FullName()
	}
	return view
}
