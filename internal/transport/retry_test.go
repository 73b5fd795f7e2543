package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

type RetryTestSuite struct {
	suite.Suite
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func (suite *RetryTestSuite) TestSucceedsFirstAttempt() {
	calls := 0

	result, err := Retry(func() (string, error) {
		calls++

		return "ok", nil
	}, 3, time.Millisecond)

	suite.NoError(err)
	suite.Equal("ok", result)
	suite.Equal(1, calls)
}

func (suite *RetryTestSuite) TestTransientFailureRecovers() {
	calls := 0

	result, err := Retry(func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("connection timeout")
		}

		return 42, nil
	}, 3, time.Millisecond)

	suite.NoError(err)
	suite.Equal(42, result)
	suite.Equal(3, calls)
}

func (suite *RetryTestSuite) TestTransientExhaustsAttemptCap() {
	calls := 0

	_, err := Retry(func() (int, error) {
		calls++

		return 0, errors.Wrap(errors.ErrCodeHTTPStatus, "server down",
			&HTTPStatusError{StatusCode: 503, Body: "unavailable"})
	}, 3, time.Millisecond)

	suite.Error(err)
	suite.Equal(3, calls)
}

func (suite *RetryTestSuite) TestExhaustionWrappedWithRetryExhausted() {
	_, err := Retry(func() (int, error) {
		return 0, fmt.Errorf("connection timeout")
	}, 3, time.Millisecond)

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRetryExhausted))
}

func (suite *RetryTestSuite) TestPermanentFailureNotWrappedAsExhausted() {
	_, err := Retry(func() (int, error) {
		return 0, errors.Wrap(errors.ErrCodeHTTPStatus, "bad request",
			&HTTPStatusError{StatusCode: 400, Body: "invalid symbol"})
	}, 3, time.Millisecond)

	suite.Error(err)
	suite.False(errors.HasCode(err, errors.ErrCodeRetryExhausted))
}

func (suite *RetryTestSuite) TestNonPositiveMaxAttemptsClampedToOne() {
	calls := 0

	_, err := Retry(func() (int, error) {
		calls++

		return 0, fmt.Errorf("connection timeout")
	}, 0, time.Millisecond)

	suite.Error(err)
	suite.Equal(1, calls)
}

func (suite *RetryTestSuite) TestPermanentFailureSingleCall() {
	calls := 0

	_, err := Retry(func() (int, error) {
		calls++

		return 0, errors.Wrap(errors.ErrCodeHTTPStatus, "bad request",
			&HTTPStatusError{StatusCode: 400, Body: "invalid symbol"})
	}, 3, time.Millisecond)

	suite.Error(err)
	suite.Equal(1, calls)
}

func (suite *RetryTestSuite) TestBackoffDelaysAreExponential() {
	var timestamps []time.Time

	_, _ = Retry(func() (int, error) {
		timestamps = append(timestamps, time.Now())

		return 0, fmt.Errorf("timeout")
	}, 3, 20*time.Millisecond)

	suite.Len(timestamps, 3)

	first := timestamps[1].Sub(timestamps[0])
	second := timestamps[2].Sub(timestamps[1])

	suite.GreaterOrEqual(first, 20*time.Millisecond)
	suite.GreaterOrEqual(second, 40*time.Millisecond)
	suite.Less(second, 200*time.Millisecond)
}

func (suite *RetryTestSuite) TestRetryingClientRecoversFromServerErrors() {
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewRetryingClient(NewClient())
	client.initialDelay = time.Millisecond

	body, err := client.Get(context.Background(), server.URL)
	suite.NoError(err)
	suite.Equal("recovered", string(body))
	suite.Equal(3, calls)
}

func (suite *RetryTestSuite) TestRetryingClientPropagatesClientErrors() {
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewRetryingClient(NewClient())
	client.initialDelay = time.Millisecond

	_, err := client.Get(context.Background(), server.URL)
	suite.Error(err)
	suite.Equal(1, calls)
}

func (suite *RetryTestSuite) TestIsTransientClassification() {
	suite.True(IsTransient(fmt.Errorf("i/o timeout")))
	suite.True(IsTransient(&HTTPStatusError{StatusCode: 502, Body: ""}))
	suite.True(IsTransient(errors.New(errors.ErrCodeNetworkTransport, "connection refused")))

	suite.False(IsTransient(nil))
	suite.False(IsTransient(&HTTPStatusError{StatusCode: 404, Body: "not found"}))
	suite.False(IsTransient(fmt.Errorf("unexpected end of JSON input")))
}
