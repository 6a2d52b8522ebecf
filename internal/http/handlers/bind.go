package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

func init() {
	// whitespace-only strings fail notblank; errors are reported by json field name
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		v.RegisterTagNameFunc(jsonTagName)
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func BindJSON(ctx *gin.Context, out interface{}) bool {
	return BindJSONWithMessage(ctx, out, "Invalid request body")
}

// normalizer is implemented by request types that trim their fields before validation.
type normalizer interface {
	Normalize()
}

// BindJSONWithMessage is BindJSON with a caller chosen top-level message.
// Decoding, normalizing and validating run in that order so length rules see trimmed values.
func BindJSONWithMessage(ctx *gin.Context, out interface{}, message string) bool {
	err := decodeJSON(ctx.Request, out)
	if err == nil {
		if n, ok := out.(normalizer); ok {
			n.Normalize()
		}
		err = binding.Validator.ValidateStruct(out)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", gin.H{"limit": tooLarge.Limit})
		return false
	}

	if err != nil {
		RespondBadRequest(ctx, message, parseBindError(err))

		return false
	}

	return true
}

func decodeJSON(req *http.Request, out interface{}) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	return json.NewDecoder(req.Body).Decode(out)
}

func parseBindError(err error) interface{} {
	// validator errors (struct bind tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   fieldPath(fieldError),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{
			"json": "invalid_json_syntax",
		}
	}

	// in the event of a type mismatch; Field is already the json path

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := strings.TrimSpace(unmatchedTypeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}

// fieldPath drops the root struct name, e.g. "CreateRecipeRequest.ingredients[1]" -> "ingredients[1]".
func fieldPath(fieldError validator.FieldError) string {
	namespace := fieldError.Namespace()

	if _, rest, ok := strings.Cut(namespace, "."); ok && rest != "" {
		return rest
	}

	return fieldError.Field()
}

// jsonTagName makes validator report fields by their json names.
func jsonTagName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")

	switch name {
	case "-":
		return ""
	case "":
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
