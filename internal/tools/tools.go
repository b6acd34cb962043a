// ABOUTME: Tools handle, typed tool inputs, and input validation
// ABOUTME: Shared by the typed tool functions and their JSON pack handlers

package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/2389/unwind-gateway/internal/packs"
	"github.com/2389/unwind-gateway/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidInput is returned when tool arguments fail validation.
var ErrInvalidInput = packs.ErrInvalidInput

// Categories is the fixed set of item categories.
var Categories = []string{
	"Tasks",
	"Ideas",
	"Errands",
	"Health",
	"Relationships",
	"Worries Vault",
	"Recurring",
}

// Priorities are the accepted priority levels, highest first.
var Priorities = []string{"high", "medium", "low"}

// Tool input defaults and limits
const (
	DefaultHistoryDays = 7
	MaxHistoryDays     = 365
	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

// Tools runs the Unwind tools against a Querier.
type Tools struct {
	db       store.Querier
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New creates a Tools handle.
func New(db store.Querier, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		db:       db,
		logger:   logger.With("component", "tools"),
		validate: newValidator(),
		now:      time.Now,
	}
}

// ByCategoryInput selects pending items in one category.
type ByCategoryInput struct {
	Category string `json:"category" validate:"required,oneof=Tasks Ideas Errands Health Relationships 'Worries Vault' Recurring" jsonschema:"description=Category name,enum=Tasks,enum=Ideas,enum=Errands,enum=Health,enum=Relationships,enum=Worries Vault,enum=Recurring"`
}

// ByTagsInput selects pending items carrying any of the tags.
type ByTagsInput struct {
	Tags []string `json:"tags" validate:"required,min=1,dive,required" jsonschema:"description=Tags to match; an item matches if it has any of them,minItems=1"`
}

// SearchInput is a case-insensitive substring search over titles and descriptions.
type SearchInput struct {
	Query string `json:"query" validate:"required" jsonschema:"description=Text to find in item titles or descriptions,minLength=1"`
}

// ItemInput names a single item.
type ItemInput struct {
	ItemID string `json:"item_id" validate:"required,itemid" jsonschema:"description=Item UUID,format=uuid"`
}

// HistoryInput sets the completion history window. Zero means the default.
type HistoryInput struct {
	Days int `json:"days,omitempty" validate:"min=1,max=365" jsonschema:"description=Number of days to look back,minimum=1,maximum=365,default=7"`
}

// RecentInput sets how many recent completions to return. Zero means the default.
type RecentInput struct {
	Limit int `json:"limit,omitempty" validate:"min=1,max=50" jsonschema:"description=Maximum completions to return,minimum=1,maximum=50,default=5"`
}

// PriorityInput changes an item's priority.
type PriorityInput struct {
	ItemID   string `json:"item_id" validate:"required,itemid" jsonschema:"description=Item UUID,format=uuid"`
	Priority string `json:"priority" validate:"required,oneof=high medium low" jsonschema:"description=New priority,enum=high,enum=medium,enum=low"`
}

// NoteInput appends a note to an item.
type NoteInput struct {
	ItemID string `json:"item_id" validate:"required,itemid" jsonschema:"description=Item UUID,format=uuid"`
	Note   string `json:"note" validate:"required" jsonschema:"description=Note text; stored with a timestamp after any existing notes,minLength=1"`
}

// PendingCounts is the number of pending items at each priority.
type PendingCounts struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
	Total  int64 `json:"total"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("itemid", func(fl validator.FieldLevel) bool {
		_, err := uuid.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// check validates in and wraps failures in ErrInvalidInput.
func (t *Tools) check(in any) error {
	if err := t.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}
	return nil
}

// describeValidation renders validator errors as short field messages.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "itemid":
			msgs = append(msgs, fe.Field()+" must be a UUID")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// canonicalID returns the lowercase hyphenated form of a validated item id.
func canonicalID(id string) string {
	return uuid.MustParse(id).String()
}

// toInt64 converts integer column values decoded by the driver.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
