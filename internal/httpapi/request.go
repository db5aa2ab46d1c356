package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"userCrudAPI/models"
)

const headerTerminator = "\r\n\r\n"

// Request is the raw request text. It is never parsed into a structured HTTP
// request; operations pull the id and body out of it on demand.
type Request struct {
	Raw string
}

// decodeRequest turns the bytes read from a connection into a Request,
// replacing invalid UTF-8 with U+FFFD.
func decodeRequest(b []byte) *Request {
	return &Request{Raw: strings.ToValidUTF8(string(b), "\uFFFD")}
}

// IDSegment returns the third "/"-separated piece of the request text up to the
// first whitespace: "GET /users/7 HTTP/1.1" yields "7".
func (r *Request) IDSegment() string {
	parts := strings.Split(r.Raw, "/")
	if len(parts) < 3 {
		return ""
	}
	fields := strings.Fields(parts[2])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ID parses IDSegment as an integer.
func (r *Request) ID() (int64, error) {
	seg := r.IDSegment()
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", seg, err)
	}
	return id, nil
}

// Body returns the text after the last blank line, or the whole request when
// there is none.
func (r *Request) Body() string {
	i := strings.LastIndex(r.Raw, headerTerminator)
	if i < 0 {
		return r.Raw
	}
	return r.Raw[i+len(headerTerminator):]
}

// Payload decodes the body as a user payload. Both name and email are required.
func (r *Request) Payload() (models.UserPayload, error) {
	var p models.UserPayload
	if err := json.Unmarshal([]byte(r.Body()), &p); err != nil {
		return p, fmt.Errorf("decode user payload: %w", err)
	}
	if !p.Complete() {
		return p, errors.New("user payload needs name and email")
	}
	return p, nil
}
