package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names rather than Go ones.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads and validates a JSON body into dst. On failure it writes
// the invalid_request reply and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("bad request body", "err", err)
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return false
	}
	return validateRequest(w, r, dst)
}

func validateRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := validate.StructCtx(r.Context(), dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		authsdk.ErrInvalidRequest.WriteError(w)
		return false
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		details[fe.Field()] = msg
	}
	authsdk.ErrInvalidRequest.
		WithDescription("request failed validation").
		WithDetails(details).
		WriteError(w)
	return false
}
