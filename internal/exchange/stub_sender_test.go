package exchange

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/tide-trading/internal/transport"
)

// stubSender records every outbound request and serves queued responses in
// FIFO order, in the style of the hand-written provider mocks elsewhere in
// the codebase.
type stubSender struct {
	requests  []transport.Request
	responses []stubResponse
}

type stubResponse struct {
	body []byte
	err  error
}

func (s *stubSender) queue(body string) {
	s.responses = append(s.responses, stubResponse{body: []byte(body)})
}

func (s *stubSender) queueErr(err error) {
	s.responses = append(s.responses, stubResponse{err: err})
}

func (s *stubSender) pop() stubResponse {
	if len(s.responses) == 0 {
		return stubResponse{err: fmt.Errorf("stubSender: no queued response")}
	}

	next := s.responses[0]
	s.responses = s.responses[1:]

	return next
}

func (s *stubSender) Get(_ context.Context, url string) ([]byte, error) {
	s.requests = append(s.requests, transport.Request{Method: "GET", URL: url})

	next := s.pop()

	return next.body, next.err
}

func (s *stubSender) Send(_ context.Context, req transport.Request) ([]byte, error) {
	s.requests = append(s.requests, req)

	next := s.pop()

	return next.body, next.err
}
