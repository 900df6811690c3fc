package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"gearshare-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

const maxRequestBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type createBookingRequest struct {
	GearID    string `json:"gear_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type transitionRequest struct {
	To   string `json:"to" validate:"required"`
	Note string `json:"note" validate:"max=500"`
}

type postMessageRequest struct {
	Body        string `json:"body" validate:"required,max=4000"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image"`
}

type submitReviewRequest struct {
	Overall       int    `json:"overall" validate:"required,min=1,max=5"`
	Communication int    `json:"communication" validate:"omitempty,min=1,max=5"`
	Accuracy      int    `json:"accuracy" validate:"omitempty,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
}

func (r submitReviewRequest) ratings() domain.Ratings {
	return domain.Ratings{
		Overall:       r.Overall,
		Communication: r.Communication,
		Accuracy:      r.Accuracy,
		Comment:       r.Comment,
	}
}

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int32 `json:"total"`
}

// decodeAndValidate reads a JSON body into dst and runs its validation tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidInput, err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %s validation", domain.ErrInvalidInput, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// pageParams parses the optional page and page_size query parameters.
func pageParams(r *http.Request) (int32, int32, error) {
	parse := func(name string) (int32, error) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
		}
		return int32(v), nil
	}
	page, err := parse("page")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := parse("page_size")
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}
