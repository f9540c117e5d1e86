package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json name.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		vErr   *domain.ValidationError
		refErr *domain.ReferenceError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: map[string]string{vErr.Field: vErr.Message},
		})
	case errors.As(err, &refErr):
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: map[string]string{refErr.Field: referenceMessage(refErr)},
		})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func referenceMessage(err *domain.ReferenceError) string {
	if err.ID == 0 {
		return domain.ErrReferenceNotFound.Error()
	}
	return fmt.Sprintf("object with id %d does not exist", err.ID)
}

// writeBindError reports malformed bodies and failed binding rules.
func writeBindError(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	fields := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		fields[fieldPath(fe)] = ruleMessage(fe)
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
}

// fieldPath drops the request struct name, e.g. "orderRequest.tickets[0].trip" gives "tickets[0].trip".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return "ensure this value is greater than " + fe.Param()
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "lte":
		return "ensure this value is less than or equal to " + fe.Param()
	case "max":
		return "ensure this field has no more than " + fe.Param() + " characters"
	case "min":
		return "ensure this field has at least " + fe.Param() + " items"
	}
	return "failed on the " + fe.Tag() + " rule"
}
