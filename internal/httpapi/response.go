package httpapi

// StatusLines are the literal status-line-plus-headers prefixes written before a body.
type StatusLines struct {
	OK            string
	NotFound      string
	InternalError string
}

// DefaultStatusLines returns the three status lines the service speaks.
func DefaultStatusLines() StatusLines {
	return StatusLines{
		OK:            "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n",
		NotFound:      "HTTP/1.1 404 NOT FOUND\r\n\r\n",
		InternalError: "HTTP/1.1 500 INTERNAL SERVER ERROR\r\n\r\n",
	}
}

// Response is a status line and a body, rendered by concatenation.
type Response struct {
	Status string
	Body   string
}

// Bytes renders the response as written on the wire.
func (r Response) Bytes() []byte {
	return []byte(r.Status + r.Body)
}
