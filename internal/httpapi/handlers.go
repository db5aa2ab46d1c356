package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"userCrudAPI/models"
	"userCrudAPI/repository"
)

// Handler implements the CRUD operations on top of a UserStore.
type Handler struct {
	users    repository.UserStore
	lines    StatusLines
	errorLog *log.Logger
}

func NewHandler(users repository.UserStore, lines StatusLines, errorLog *log.Logger) *Handler {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Handler{users: users, lines: lines, errorLog: errorLog}
}

// Routes returns the route table in match order. "GET /users/" must precede
// "GET /users".
func (h *Handler) Routes() []Route {
	return []Route{
		{Method: "POST", Prefix: "/users", Handle: h.CreateUser},
		{Method: "GET", Prefix: "/users/", Handle: h.GetUser},
		{Method: "GET", Prefix: "/users", Handle: h.ListUsers},
		{Method: "PUT", Prefix: "/users/", Handle: h.UpdateUser},
		{Method: "DELETE", Prefix: "/users", Handle: h.DeleteUser},
	}
}

// Router returns a Router over Routes.
func (h *Handler) Router() *Router {
	return NewRouter(h.lines, h.errorLog, h.Routes()...)
}

func (h *Handler) ok(body string) Response {
	return Response{Status: h.lines.OK, Body: body}
}

func (h *Handler) notFound() Response {
	return Response{Status: h.lines.NotFound, Body: "User not found"}
}

func (h *Handler) internalError(body string, err error) Response {
	h.errorLog.Printf("%s: %v", body, err)
	return Response{Status: h.lines.InternalError, Body: body}
}

// CreateUser inserts the user described by the body. The generated id is not
// returned.
func (h *Handler) CreateUser(ctx context.Context, req *Request) Response {
	const failure = "Error creating user"
	p, err := req.Payload()
	if err != nil {
		return h.internalError(failure, err)
	}
	if _, err := h.users.Create(ctx, *p.Name, *p.Email); err != nil {
		return h.internalError(failure, err)
	}
	return h.ok("User created")
}

// GetUser returns one user as JSON. Only an unreachable store or a bad id is a
// 500; every other failure reads as "not found".
func (h *Handler) GetUser(ctx context.Context, req *Request) Response {
	const failure = "Error getting user"
	id, err := req.ID()
	if err != nil {
		return h.internalError(failure, err)
	}
	u, err := h.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUnavailable) {
		return h.internalError(failure, err)
	}
	if err != nil || u == nil {
		return h.notFound()
	}
	b, err := json.Marshal(u)
	if err != nil {
		return h.internalError(failure, err)
	}
	return h.ok(string(b))
}

// ListUsers returns every user as a JSON array, "[]" when there are none.
func (h *Handler) ListUsers(ctx context.Context, _ *Request) Response {
	const failure = "Error getting users"
	users, err := h.users.List(ctx)
	if err != nil {
		return h.internalError(failure, err)
	}
	if users == nil {
		users = []models.User{}
	}
	b, err := json.Marshal(users)
	if err != nil {
		return h.internalError(failure, err)
	}
	return h.ok(string(b))
}

// UpdateUser replaces name and email of an existing user. Zero matched rows and
// statement errors both read as "not found".
func (h *Handler) UpdateUser(ctx context.Context, req *Request) Response {
	const failure = "Error updating user"
	id, err := req.ID()
	if err != nil {
		return h.internalError(failure, err)
	}
	p, err := req.Payload()
	if err != nil {
		return h.internalError(failure, err)
	}
	n, err := h.users.UpdateByID(ctx, id, *p.Name, *p.Email)
	if errors.Is(err, repository.ErrUnavailable) {
		return h.internalError(failure, err)
	}
	if err != nil || n == 0 {
		return h.notFound()
	}
	return h.ok("User updated")
}

// DeleteUser removes a user by id.
func (h *Handler) DeleteUser(ctx context.Context, req *Request) Response {
	const failure = "Error deleting user"
	id, err := req.ID()
	if err != nil {
		return h.internalError(failure, err)
	}
	n, err := h.users.DeleteByID(ctx, id)
	if err != nil {
		return h.internalError(failure, err)
	}
	if n == 0 {
		return h.notFound()
	}
	return h.ok("User deleted")
}
