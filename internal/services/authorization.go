package services

import (
	"context"
	"log/slog"
	"net/http"

	"kanmind/backend/internal/models"
	"kanmind/backend/internal/monitoring"
)

// Verb is the class of an HTTP method for authorization purposes.
type Verb string

const (
	VerbSafe   Verb = "safe"
	VerbMutate Verb = "mutate"
	VerbDelete Verb = "delete"
)

func VerbFromMethod(method string) Verb {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return VerbSafe
	case http.MethodDelete:
		return VerbDelete
	}
	return VerbMutate
}

type Resource string

const (
	ResourceBoard   Resource = "board"
	ResourceTask    Resource = "task"
	ResourceComment Resource = "comment"
)

// Subject carries the already-loaded objects a rule is evaluated against.
// Board is always the board that scopes the request.
type Subject struct {
	Board   *models.Board
	Task    *models.Task
	Comment *models.Comment
}

// Predicate is a named authorization check.
type Predicate struct {
	Name  string
	Allow func(userID uint, s Subject) bool
}

var (
	OwnerOrMember = Predicate{
		Name: "board_owner_or_member",
		Allow: func(userID uint, s Subject) bool {
			return s.Board != nil && s.Board.IsOwnerOrMember(userID)
		},
	}
	BoardOwner = Predicate{
		Name: "board_owner",
		Allow: func(userID uint, s Subject) bool {
			return s.Board != nil && s.Board.IsOwner(userID)
		},
	}
	BoardOwnerOrTaskCreator = Predicate{
		Name: "board_owner_or_task_creator",
		Allow: func(userID uint, s Subject) bool {
			if s.Board != nil && s.Board.IsOwner(userID) {
				return true
			}
			return s.Task != nil && s.Task.IsCreator(userID)
		},
	}
	CommentAuthor = Predicate{
		Name: "comment_author",
		Allow: func(userID uint, s Subject) bool {
			return s.Comment != nil && s.Comment.IsAuthor(userID)
		},
	}
)

// Rules is the rule table: one predicate per resource and verb class.
var Rules = map[Resource]map[Verb]Predicate{
	ResourceBoard: {
		VerbSafe:   OwnerOrMember,
		VerbMutate: OwnerOrMember,
		VerbDelete: BoardOwner,
	},
	ResourceTask: {
		VerbSafe:   OwnerOrMember,
		VerbMutate: OwnerOrMember,
		VerbDelete: BoardOwnerOrTaskCreator,
	},
	ResourceComment: {
		VerbSafe:   OwnerOrMember,
		VerbMutate: OwnerOrMember,
		VerbDelete: CommentAuthor,
	},
}

type Authorizer struct {
	log *slog.Logger
}

func NewAuthorizer(log *slog.Logger) *Authorizer {
	if log == nil {
		log = slog.Default()
	}
	return &Authorizer{log: log.With(slog.String("component", "authz"))}
}

// Authorize evaluates the rule for resource and verb. It returns ErrForbidden
// on denial; callers resolve NotFound before calling it.
func (a *Authorizer) Authorize(ctx context.Context, userID uint, resource Resource, id uint, verb Verb, subject Subject) error {
	predicate, ok := Rules[resource][verb]
	allowed := ok && predicate.Allow(userID, subject)

	reason := predicate.Name
	if !ok {
		reason = "no_rule"
	}

	attrs := []any{
		slog.Uint64("user_id", uint64(userID)),
		slog.String("resource", string(resource)),
		slog.Uint64("id", uint64(id)),
		slog.String("verb", string(verb)),
		slog.String("rule", reason),
	}
	monitoring.ObserveAuthzDecision(string(resource), string(verb), allowed)

	if !allowed {
		a.log.InfoContext(ctx, "access denied", attrs...)
		return ErrForbidden
	}
	a.log.DebugContext(ctx, "access granted", attrs...)
	return nil
}
