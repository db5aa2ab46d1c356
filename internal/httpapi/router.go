package httpapi

import (
	"context"
	"log"
	"strings"
)

// Operation handles one routed request.
type Operation func(ctx context.Context, req *Request) Response

// Route selects an Operation when the request text starts with "Method Prefix".
type Route struct {
	Method string
	Prefix string
	Handle Operation
}

func (rt Route) matches(raw string) bool {
	return strings.HasPrefix(raw, rt.Method+" "+rt.Prefix)
}

// Router is an ordered route table. The first matching route wins, so a route
// must come before any other route whose prefix is a prefix of its own.
type Router struct {
	routes   []Route
	lines    StatusLines
	errorLog *log.Logger
}

// NewRouter builds a router over routes, answering unmatched requests with 404 "NOT FOUND".
func NewRouter(lines StatusLines, errorLog *log.Logger, routes ...Route) *Router {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Router{routes: routes, lines: lines, errorLog: errorLog}
}

// Dispatch runs the first matching operation. A panicking operation yields a 500.
func (rt *Router) Dispatch(ctx context.Context, req *Request) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			rt.errorLog.Printf("panic handling request: %v", p)
			resp = Response{Status: rt.lines.InternalError, Body: "Internal server error"}
		}
	}()
	for _, r := range rt.routes {
		if r.matches(req.Raw) {
			return r.Handle(ctx, req)
		}
	}
	return Response{Status: rt.lines.NotFound, Body: "NOT FOUND"}
}
