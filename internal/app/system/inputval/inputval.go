// internal/app/system/inputval/inputval.go
//
// Package inputval validates request payloads with struct tags and provides
// the single-value checks handlers need for path and query parameters.
//
//	type createUserInput struct {
//	    TokenIdentifier string `json:"token_identifier" validate:"required,max=200" label:"Token identifier"`
//	    Email           string `json:"email" validate:"omitempty,mailaddr" label:"Email"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() { ... res.First() ... }
package inputval

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule, with a sentence suitable for clients.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result collects the field errors of one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil when valid, otherwise apperr.ErrInvalidInput carrying
// the first message.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, r.First())
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return IsValidRole(fl.Field().String())
		})
		_ = v.RegisterValidation("filetype", func(fl validator.FieldLevel) bool {
			return models.IsValidFileType(strings.ToLower(strings.TrimSpace(fl.Field().String())))
		})
		_ = v.RegisterValidation("approvaltype", func(fl validator.FieldLevel) bool {
			return models.IsValidApprovalType(strings.ToLower(strings.TrimSpace(fl.Field().String())))
		})
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsValidHTTPURL(fl.Field().String())
		})
		_ = v.RegisterValidation("mailaddr", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
	})
	return v
}

// Validate checks s against its `validate` tags. Messages use the `label`
// tag when present.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.StructField(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email", "mailaddr":
		return "A valid email address is required."
	case "role":
		return label + " must be member, admin or super-admin."
	case "filetype":
		return label + " must be image, csv or pdf."
	case "approvaltype":
		return label + " must be addition or deletion."
	case "httpurl":
		return label + " must be an http or https URL."
	case "objectid":
		return label + " must be a valid id."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	default:
		return label + " is invalid."
	}
}

// IsValidEmail reports whether s is a bare address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return false
	}
	return true
}

// IsValidHTTPURL reports whether s is an absolute http(s) URL with a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidObjectID reports whether s is a 24-character hex id.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidRole reports whether s names a role once normalized, so legacy
// spellings such as "superadmin" pass.
func IsValidRole(s string) bool {
	return models.IsValidRole(normalize.Role(s))
}

// ParseObjectID parses a path or query id. Bad ids are apperr.ErrInvalidInput.
func ParseObjectID(s, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s is not a valid id", apperr.ErrInvalidInput, what)
	}
	return id, nil
}

// ParseOptionalObjectID is ParseObjectID for optional parameters; "" is nil.
func ParseOptionalObjectID(s, what string) (*primitive.ObjectID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := ParseObjectID(s, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
