package handler

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// Binding sources understood by BindError.
const (
	SourceQuery = "query"
	SourceBody  = "body"
)

// BindError turns a gin binding failure into a validation error. Parser
// errors that carry the offending value are attributed to the query or body
// field holding it; otherwise source is reported.
func BindError(c *gin.Context, err error, source string) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return invalidField(typeErr.Field, "must be a "+typeErr.Type.String())
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return invalidField(source, "must be valid JSON")
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return invalidField(fieldWithValue(c, source, numErr.Num), numberMessage(numErr.Func))
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return invalidField(fieldWithValue(c, source, timeErr.Value), "must be an RFC 3339 date-time")
	}
	return invalidField(source, "could not be parsed")
}

func invalidField(field, message string) error {
	return apperrors.NewValidation("malformed request", apperrors.FieldError{Field: field, Message: message})
}

func numberMessage(fn string) string {
	switch fn {
	case "ParseFloat":
		return "must be a number"
	case "ParseBool":
		return "must be a boolean"
	default:
		return "must be an integer"
	}
}

// fieldWithValue finds the first field, in name order, whose raw value is
// value. The body is only visible when it was bound with ShouldBindBodyWith.
func fieldWithValue(c *gin.Context, source, value string) string {
	var values map[string][]string

	switch source {
	case SourceQuery:
		values = c.Request.URL.Query()
	case SourceBody:
		raw, ok := c.Get(gin.BodyBytesKey)
		if !ok {
			return source
		}
		body, _ := raw.([]byte)
		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) != nil {
			return source
		}
		values = make(map[string][]string, len(fields))
		for name, v := range fields {
			var s string
			if json.Unmarshal(v, &s) == nil {
				values[name] = []string{s}
			}
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range values[name] {
			if v == value {
				return name
			}
		}
	}
	return source
}

// ParseID reads a positive integer path parameter. Anything else is reported
// as a missing resource.
func ParseID(c *gin.Context, param, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, err)
	}
	return id, nil
}
