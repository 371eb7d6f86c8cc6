package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGenerateSuccess(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "PROMPT", req.Contents[0].Parts[0].Text)

		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"## Re"},{"text":"port"}]},"finishReason":"STOP"}]}`)
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))

	text, err := client.Generate(context.Background(), "PROMPT")
	require.NoError(t, err)
	assert.Equal(t, "## Report", text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateUsesConfiguredModel(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	})

	client := NewClient("k", WithBaseURL(srv.URL+"/"), WithModel("gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-pro", client.Model())

	_, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
}

func TestGenerateClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    FailureKind
		message string
	}{
		{
			name:    "invalid key",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			kind:    FailureUnauthorized,
			message: UnauthorizedMessage,
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{"error":{"code":403,"message":"Method doesn't allow unregistered callers.","status":"PERMISSION_DENIED"}}`,
			kind:    FailureUnauthorized,
			message: UnauthorizedMessage,
		},
		{
			name:    "unauthenticated status",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":400,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`,
			kind:    FailureUnauthorized,
			message: UnauthorizedMessage,
		},
		{
			name:    "quota",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			kind:    FailureService,
			message: "API Error: Resource has been exhausted",
		},
		{
			name:    "plain text error",
			status:  http.StatusInternalServerError,
			body:    "upstream exploded",
			kind:    FailureService,
			message: "API Error: upstream exploded",
		},
		{
			name:    "empty error body",
			status:  http.StatusBadGateway,
			body:    "",
			kind:    FailureService,
			message: "API Error: Bad Gateway",
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    `{"candidates":[]}`,
			kind:    FailureService,
			message: "API Error: empty response",
		},
		{
			name:    "blank text",
			status:  http.StatusOK,
			body:    `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
			kind:    FailureService,
			message: "API Error: empty response",
		},
		{
			name:    "blocked prompt",
			status:  http.StatusOK,
			body:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			kind:    FailureService,
			message: "API Error: prompt blocked: SAFETY",
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"candidates":`,
			kind:    FailureService,
			message: "API Error: malformed response from service",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			_, err := NewClient("k", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
			require.Error(t, err)

			var genErr *Error
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tc.kind, genErr.Kind)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Equal(t, tc.message, Message(err))
			assert.Equal(t, int32(1), calls.Load(), "no retries")
		})
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient("k", WithBaseURL(url)).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, FailureUnreachable, KindOf(err))
	assert.Equal(t, UnknownErrorMessage, Message(err))
}

func TestGenerateTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
	})
	defer close(release)

	_, err := NewClient("k", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond)).
		Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, FailureUnreachable, KindOf(err))
}

func TestGenerateCanceledContext(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"late"}]}}]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Generate(ctx, "p")
	require.Error(t, err)
	assert.Equal(t, FailureUnreachable, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMessageForForeignErrors(t *testing.T) {
	err := errors.New("secret internal detail")

	assert.Equal(t, FailureUnreachable, KindOf(err))
	assert.Equal(t, UnknownErrorMessage, Message(err))
	assert.NotContains(t, Message(err), "secret")
}

func TestLongErrorBodyStaysValidUTF8(t *testing.T) {
	body := "x" + strings.Repeat("é", 3000)
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, body)
	})

	_, err := NewClient("k", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	require.Error(t, err)

	var genErr *Error
	require.True(t, errors.As(err, &genErr))
	assert.LessOrEqual(t, len(genErr.Detail), maxErrorBody)
	assert.True(t, utf8.ValidString(genErr.Detail))
	assert.True(t, utf8.ValidString(Message(err)))
	assert.True(t, strings.HasPrefix(body, genErr.Detail))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "x", truncate("xé", 2))
	assert.Equal(t, "xé", truncate("xé", 3))
}
