package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

type testForm struct {
	Name  string `schema:"name" validate:"required,max=8"`
	Email string `schema:"email" validate:"omitempty,email"`
	Count int    `schema:"count"`
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodeForm(t *testing.T) {
	testCases := []struct {
		name       string
		values     url.Values
		wantFields []string
	}{
		{"valid", url.Values{"name": {"ada"}, "email": {"ada@example.com"}, "count": {"2"}, "extra": {"x"}}, nil},
		{"missing name", url.Values{"email": {"ada@example.com"}}, []string{"name"}},
		{"too long and bad email", url.Values{"name": {"abcdefghij"}, "email": {"nope"}}, []string{"name", "email"}},
		{"bad number", url.Values{"name": {"ada"}, "count": {"many"}}, []string{"count"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var f testForm
			err := DecodeForm(postForm(tc.values), &f)
			if len(tc.wantFields) == 0 {
				if err != nil {
					t.Fatalf("DecodeForm: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			for _, name := range tc.wantFields {
				if _, ok := verr.Fields[name]; !ok {
					t.Fatalf("fields = %v, want %q", verr.Fields, name)
				}
			}
		})
	}
}

func TestDecodeForm_Messages(t *testing.T) {
	var f testForm
	err := DecodeForm(postForm(url.Values{}), &f)
	if err == nil {
		t.Fatal("DecodeForm: want error")
	}
	if got, want := err.Error(), "name is required"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestFormValues_OmitsPassword(t *testing.T) {
	req := postForm(url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	got := FormValues(req)
	if got["email"] != "ada@example.com" {
		t.Fatalf("email = %q, want ada@example.com", got["email"])
	}
	if _, ok := got["password"]; ok {
		t.Fatal("FormValues kept the password")
	}
}
