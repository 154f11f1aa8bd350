package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	h "stepup/internal/helpers"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// BodyKey holds the decoded and validated request body.
type BodyKey struct{}

// QueryKey holds the decoded and validated query parameters.
type QueryKey struct{}

const maxBodySize = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator builds the shared validator. Field errors are reported
// using json names.
func InitValidator() {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func validationCodes(err error) []string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{"BAD_REQUEST"}
	}

	codes := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		codes = append(codes, strings.ToUpper(fe.Field()+"_"+fe.Tag()))
	}
	return codes
}

func Validate[T any](next http.Handler) http.Handler {
	InitValidator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body T

		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err := decoder.Decode(&body); err != nil {
			h.RespondWithError(w, 400, []string{"BAD_REQUEST"})
			return
		}

		if err := validate.Struct(body); err != nil {
			h.RespondWithError(w, 400, validationCodes(err))
			return
		}

		ctx := context.WithValue(r.Context(), BodyKey{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ValidateQuery[T any](next http.Handler) http.Handler {
	InitValidator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := make(map[string]any)
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				raw[key] = values[0]
			}
		}

		var params T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           &params,
		})
		if err != nil {
			h.RespondWithError(w, 500, []string{"INTERNAL_SERVER_ERROR"})
			return
		}
		if err = decoder.Decode(raw); err != nil {
			h.RespondWithError(w, 400, []string{"BAD_REQUEST"})
			return
		}

		if err = validate.Struct(params); err != nil {
			h.RespondWithError(w, 400, validationCodes(err))
			return
		}

		ctx := context.WithValue(r.Context(), QueryKey{}, params)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
