package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_IDSegment(t *testing.T) {
	cases := []struct{ raw, want string }{
		{"GET /users/7 HTTP/1.1\r\nHost: x\r\n\r\n", "7"},
		{"PUT /users/42 HTTP/1.1\r\n\r\n{}", "42"},
		{"DELETE /users/abc HTTP/1.1\r\n\r\n", "abc"},
		{"GET /users/ HTTP/1.1\r\n\r\n", "HTTP"},
		{"GET /users/15?x=1 HTTP/1.1\r\n\r\n", "15?x=1"},
		// No id: the third piece is the protocol version.
		{"DELETE /users HTTP/1.1\r\n\r\n", "1.1"},
		{"GET /users", ""},
		{"", ""},
	}
	for _, c := range cases {
		req := &Request{Raw: c.raw}
		assert.Equal(t, c.want, req.IDSegment(), "raw=%q", c.raw)
	}
}

func TestRequest_ID(t *testing.T) {
	id, err := (&Request{Raw: "GET /users/7 HTTP/1.1\r\n\r\n"}).ID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = (&Request{Raw: "GET /users/seven HTTP/1.1\r\n\r\n"}).ID()
	assert.Error(t, err)

	_, err = (&Request{Raw: "DELETE /users HTTP/1.1\r\n\r\n"}).ID()
	assert.Error(t, err)
}

func TestRequest_Body(t *testing.T) {
	req := &Request{Raw: "POST /users HTTP/1.1\r\nHost: x\r\n\r\n{\"name\":\"a\"}"}
	assert.Equal(t, `{"name":"a"}`, req.Body())

	// The text after the last blank line wins.
	req = &Request{Raw: "POST /users HTTP/1.1\r\n\r\nfirst\r\n\r\nsecond"}
	assert.Equal(t, "second", req.Body())

	// Without a blank line the whole request is the body.
	req = &Request{Raw: `{"name":"a","email":"b"}`}
	assert.Equal(t, `{"name":"a","email":"b"}`, req.Body())
}

func TestRequest_Payload(t *testing.T) {
	p, err := (&Request{Raw: "POST /users HTTP/1.1\r\n\r\n{\"id\":9,\"name\":\"Alice\",\"email\":\"a@x.com\"}"}).Payload()
	require.NoError(t, err)
	assert.Equal(t, "Alice", *p.Name)
	assert.Equal(t, "a@x.com", *p.Email)

	empty, err := (&Request{Raw: "POST /users HTTP/1.1\r\n\r\n{\"name\":\"\",\"email\":\"\"}"}).Payload()
	require.NoError(t, err, "empty strings are valid values")
	assert.Equal(t, "", *empty.Name)

	for _, body := range []string{
		"",
		"not json",
		`{"name":"Alice"}`,
		`{"name":"Alice","email":null}`,
		`{"name":1,"email":"a@x.com"}`,
		`{"name":"Alice","email":"a@x`,
	} {
		_, err := (&Request{Raw: "POST /users HTTP/1.1\r\n\r\n" + body}).Payload()
		assert.Error(t, err, "body=%q", body)
	}
}

func TestDecodeRequest_LossyUTF8(t *testing.T) {
	req := decodeRequest([]byte("GET /users/\xff\xfe1 HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "GET /users/\uFFFD1 HTTP/1.1\r\n\r\n", req.Raw)
}

func TestResponse_Bytes(t *testing.T) {
	lines := DefaultStatusLines()
	r := Response{Status: lines.NotFound, Body: "NOT FOUND"}
	assert.Equal(t, "HTTP/1.1 404 NOT FOUND\r\n\r\nNOT FOUND", string(r.Bytes()))
}
