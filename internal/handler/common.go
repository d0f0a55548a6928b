package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

var errNoIdentity = errors.New("missing or invalid customer identity")

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator reports fields by their json names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (r *RequestValidator) Validate(i interface{}) error {
	return r.v.Struct(i)
}

// getUserID returns the customer id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.CustomerID(c)
	if !ok {
		return 0, errNoIdentity
	}
	return id, nil
}

// bind decodes the body into req and runs struct validation.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return &service.ValidationError{Msg: "invalid body", Err: err}
	}
	if err := c.Validate(req); err != nil {
		return validationFrom(err)
	}
	return nil
}

func validationFrom(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &service.ValidationError{
			Field: fe.Field(),
			Msg:   "failed '" + fe.Tag() + "' rule",
			Err:   err,
		}
	}
	return &service.ValidationError{Msg: err.Error(), Err: err}
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, &service.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return n, nil
}

// paging reads limit and offset query parameters. Missing values are 0
// and the services apply their defaults.
func paging(c echo.Context) (limit, offset int, err error) {
	if s := c.QueryParam("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, &service.ValidationError{Field: "limit", Msg: "must be an integer"}
		}
	}
	if s := c.QueryParam("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			return 0, 0, &service.ValidationError{Field: "offset", Msg: "must be an integer"}
		}
	}
	return limit, offset, nil
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// writeError maps service errors to HTTP statuses. Unexpected errors are
// logged and reported without details.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	var (
		verr *service.ValidationError
		nerr *service.NotFoundError
		cerr *service.ConflictError
		ferr *service.ForbiddenError
	)
	switch {
	case errors.Is(err, errNoIdentity):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error(), Code: "UNAUTHORIZED"})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorBody{Error: verr.Error(), Code: "VALIDATION_ERROR", Field: verr.Field})
	case errors.As(err, &nerr):
		return c.JSON(http.StatusNotFound, errorBody{Error: nerr.Error(), Code: "NOT_FOUND"})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, errorBody{Error: cerr.Error(), Code: cerr.Code})
	case errors.As(err, &ferr):
		return c.JSON(http.StatusForbidden, errorBody{Error: ferr.Error(), Code: "FORBIDDEN"})
	}
	log.WithError(err).
		WithFields(logrus.Fields{"method": c.Request().Method, "route": c.Path()}).
		Error("request failed")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"})
}
