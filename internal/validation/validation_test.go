package validation_test

import (
	"errors"
	"testing"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/validation"
)

type contactReq struct {
	Name   string   `json:"name" validate:"required,min=2,max=5"`
	Email  string   `json:"email,omitempty" validate:"required,email"`
	Link   string   `json:"link" validate:"omitempty,http_url"`
	Others []string `json:"others" validate:"dive,email"`
}

func TestError_Messages(t *testing.T) {
	v := validation.New()
	cases := []struct {
		name string
		req  contactReq
		want string
	}{
		{"missing name", contactReq{Email: "a@b.co"}, "name is required"},
		{"short name", contactReq{Name: "a", Email: "a@b.co"}, "name must be at least 2 characters"},
		{"long name", contactReq{Name: "abcdef", Email: "a@b.co"}, "name must be at most 5 characters"},
		{"bad email", contactReq{Name: "abc", Email: "a@b..c"}, "invalid email address"},
		{"bad link", contactReq{Name: "abc", Email: "a@b.co", Link: "ftp://x"}, "link must be an http(s) URL"},
		{"bad nested email", contactReq{Name: "abc", Email: "a@b.co", Others: []string{"x"}}, "invalid email address"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validation.Error(v.Struct(c.req), nil)
			if apperror.CodeOf(err) != apperror.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := apperror.PublicMessage(err); got != c.want {
				t.Fatalf("message = %q, want %q", got, c.want)
			}
		})
	}
}

func TestError_EmailShapes(t *testing.T) {
	v := validation.New()
	for _, email := range []string{"a@b..c", "a@.b.c", "a,b@c.d", "a@b", "@b.co", "a b@c.d"} {
		req := contactReq{Name: "abc", Email: email}
		if err := v.Struct(req); err == nil {
			t.Errorf("%q accepted", email)
		}
	}
	if err := v.Struct(contactReq{Name: "abc", Email: "hr.team+jobs@example.com.bd"}); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
}

func TestError_Overrides(t *testing.T) {
	v := validation.New()
	err := validation.Error(v.Struct(contactReq{Name: "abc", Email: "nope"}), validation.Messages{"email": "bad contact"})
	if got := apperror.PublicMessage(err); got != "bad contact" {
		t.Fatalf("message = %q", got)
	}
}

func TestError_PassesOtherErrors(t *testing.T) {
	plain := errors.New("boom")
	if got := validation.Error(plain, nil); got != plain {
		t.Fatalf("got %v, want the original error", got)
	}
	if validation.Error(nil, nil) != nil {
		t.Fatalf("nil error converted")
	}
}
