package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostFormSendsSessionHeaders(t *testing.T) {
	var got *http.Request
	var body url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = r.ParseForm()
		body = r.PostForm
		_, _ = w.Write([]byte(`{"errCode":"0"}`))
	}))
	defer srv.Close()

	s := NewSession(srv.URL, "JSESSIONID=abc123", Options{})
	text, err := s.PostForm(context.Background(), "/user/tennis/tennisReservDayCheck.do",
		url.Values{"reservDate": {"20241015"}})
	assert.NoError(t, err)
	assert.Equal(t, `{"errCode":"0"}`, text)

	assert.Equal(t, "/user/tennis/tennisReservDayCheck.do", got.URL.Path)
	assert.Equal(t, "JSESSIONID=abc123", got.Header.Get("Cookie"))
	assert.Equal(t, "GMFMC_AJAX", got.Header.Get("Caller_id"))
	assert.Equal(t, "XMLHttpRequest", got.Header.Get("X-Requested-With"))
	assert.Contains(t, got.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
	assert.Equal(t, "20241015", body.Get("reservDate"))
}

func TestPostFormErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSession(srv.URL, "JSESSIONID=abc", Options{})
	_, err := s.PostForm(context.Background(), "/x.do", url.Values{})
	assert.Error(t, err)
}

func TestPostFormTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	s := NewSession(srv.URL, "JSESSIONID=abc", Options{Timeout: 20 * time.Millisecond})
	_, err := s.PostForm(context.Background(), "/x.do", url.Values{})
	assert.Error(t, err)
}
