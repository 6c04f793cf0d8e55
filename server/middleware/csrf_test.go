// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/refill/refill/core/cookie"
)

func csrfHandler() http.Handler {
	reject := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(StatusPageExpired)
	})

	return Wrap(NewCSRF(reject), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCSRFIssuesToken(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, string(cookie.XSRFCookie), cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.False(t, cookies[0].HttpOnly, "scripts must be able to read the token")
}

func TestCSRFKeepsExistingToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: string(cookie.XSRFCookie), Value: "existing"})

	rr := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rr, req)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "existing", cookies[0].Value)
}

func TestCSRFUnsafeMethods(t *testing.T) {
	t.Parallel()

	const token = "s3cr3t-token"

	tests := []struct {
		name       string
		cookie     string
		header     string
		headerName string
		form       string
		wantStatus int
	}{
		{"no cookie", "", "", "", "", StatusPageExpired},
		{"no submitted token", token, "", "", "", StatusPageExpired},
		{"wrong header", token, "other", "X-XSRF-TOKEN", "", StatusPageExpired},
		{"xsrf header", token, token, "X-XSRF-TOKEN", "", http.StatusNoContent},
		{"csrf header", token, token, "X-CSRF-TOKEN", "", http.StatusNoContent},
		{"form field", token, "", "", token, http.StatusNoContent},
		{"wrong form field", token, "", "", "nope", StatusPageExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body *strings.Reader
			if tt.form != "" {
				body = strings.NewReader(url.Values{"_token": {tt.form}}.Encode())
			} else {
				body = strings.NewReader("")
			}

			req := httptest.NewRequest(http.MethodPost, "/logout", body)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: string(cookie.XSRFCookie), Value: tt.cookie})
			}

			if tt.headerName != "" {
				req.Header.Set(tt.headerName, tt.header)
			}

			rr := httptest.NewRecorder()
			csrfHandler().ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
