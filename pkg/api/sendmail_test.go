package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/telekom/smtp-relay/pkg/config"
	"github.com/telekom/smtp-relay/pkg/ratelimit"
	"github.com/telekom/smtp-relay/pkg/relay"
)

// fakeDispatcher is a test double standing in for an SMTP session.
type fakeDispatcher struct {
	err   error
	calls int
	smtp  relay.SMTPConfig
	mail  relay.Envelope
}

func (f *fakeDispatcher) SendMail(_ context.Context, smtp relay.SMTPConfig, mail relay.Envelope) error {
	f.calls++
	f.smtp = smtp
	f.mail = mail
	return f.err
}

func newTestServer(t *testing.T, cfg config.Config, dispatcher relay.Dispatcher, middleware ...gin.HandlerFunc) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	s := NewServer(logger, cfg, true)
	require.NoError(t, s.RegisterAll([]APIController{
		NewRelayController(logger.Sugar(), cfg, dispatcher, middleware...),
	}))
	return s
}

func postSendMail(s *Server, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/send-mail", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.168.1.1:12345"
	s.gin.ServeHTTP(w, req)
	return w
}

func validBody(t *testing.T, mutate func(m map[string]any)) string {
	t.Helper()
	m := map[string]any{
		"smtp": map[string]any{
			"host": "smtp.example.com",
			"port": 587,
			"user": "a@example.com",
			"pass": "x",
		},
		"mail": map[string]any{
			"from":    "a@example.com",
			"to":      "b@example.com",
			"subject": "Hi",
			"body":    "Hello",
		},
	}
	if mutate != nil {
		mutate(m)
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func TestHandleSendMail(t *testing.T) {
	var cfg config.Config
	cfg.Defaults()

	t.Run("valid request with succeeding session", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"Email sent successfully"}`, w.Body.String())
		require.Equal(t, 1, dispatcher.calls)
		assert.Equal(t, "smtp.example.com", dispatcher.smtp.Host)
		assert.Equal(t, 587, dispatcher.smtp.Port)
		assert.Equal(t, "b@example.com", dispatcher.mail.To)
	})

	t.Run("explicit secure flag is forwarded", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, func(m map[string]any) {
			m["smtp"].(map[string]any)["secure"] = true
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1, dispatcher.calls)
		require.NotNil(t, dispatcher.smtp.Secure)
		assert.True(t, *dispatcher.smtp.Secure)
	})

	t.Run("missing smtp object", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, `{"mail":{"from":"a@example.com","to":"b@example.com","subject":"Hi","body":"Hello"}}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"smtp and mail are required"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls, "no SMTP session may be attempted")
	})

	t.Run("missing mail object", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, `{"smtp":{"host":"smtp.example.com","port":587,"user":"a@example.com","pass":"x"}}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"smtp and mail are required"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls)
	})

	t.Run("incomplete credentials", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, func(m map[string]any) {
			delete(m["smtp"].(map[string]any), "pass")
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"incomplete credentials"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls)
	})

	t.Run("missing email fields", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, func(m map[string]any) {
			delete(m["mail"].(map[string]any), "subject")
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"missing email fields"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls)
	})

	t.Run("port 25 is not allowed", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, func(m map[string]any) {
			m["smtp"].(map[string]any)["port"] = 25
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"SMTP port not allowed"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls, "disallowed ports must never reach the dispatcher")
	})

	t.Run("configured allow-list extension is honored", func(t *testing.T) {
		extended := cfg
		extended.SMTP.AllowedPorts = []int{465, 587, 2525, 3000}
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, extended, dispatcher)

		w := postSendMail(s, validBody(t, func(m map[string]any) {
			m["smtp"].(map[string]any)["port"] = 3000
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, dispatcher.calls)
	})

	t.Run("invalid email format", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		for _, addr := range []string{"no-at-sign.example.com", "no-dot@example"} {
			w := postSendMail(s, validBody(t, func(m map[string]any) {
				m["mail"].(map[string]any)["from"] = addr
			}))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"invalid email format"}`, w.Body.String())
		}
		assert.Zero(t, dispatcher.calls)
	})

	t.Run("session failure maps to the fixed 401", func(t *testing.T) {
		dispatcher := &fakeDispatcher{err: relay.ErrSession}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"SMTP authentication failed or email rejected"}`, w.Body.String())
	})

	t.Run("any dispatcher error maps to the same 401", func(t *testing.T) {
		dispatcher := &fakeDispatcher{err: context.DeadlineExceeded}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, validBody(t, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"SMTP authentication failed or email rejected"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "deadline", "transport detail must not leak")
	})

	t.Run("malformed JSON body", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		w := postSendMail(s, `{"smtp": nope`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid JSON body"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls)
	})

	t.Run("oversized body is rejected before dispatch", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		s := newTestServer(t, cfg, dispatcher)

		huge := validBody(t, func(m map[string]any) {
			m["mail"].(map[string]any)["body"] = strings.Repeat("a", 200*1024)
		})
		w := postSendMail(s, huge)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"error":"request body too large"}`, w.Body.String())
		assert.Zero(t, dispatcher.calls)
	})
}

func TestSendMailRateLimiting(t *testing.T) {
	var cfg config.Config
	cfg.Defaults()

	store := ratelimit.NewMemoryStore(15*time.Minute, time.Minute)
	defer store.Stop()
	limiter := ratelimit.NewWithStore(ratelimit.Config{Window: 15 * time.Minute, MaxRequests: 20}, store)

	dispatcher := &fakeDispatcher{}
	s := newTestServer(t, cfg, dispatcher, limiter.Middleware())

	for i := 0; i < 20; i++ {
		w := postSendMail(s, validBody(t, nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := postSendMail(s, validBody(t, nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "21st request in the window is limited")
	assert.JSONEq(t, `{"error":"Too many requests"}`, w.Body.String())
	assert.Equal(t, 20, dispatcher.calls, "limited requests never reach the dispatcher")

	t.Run("docs page stays reachable while limited", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		s.gin.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
