package validator

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Generic rule tags available on every Validator.
const (
	TagJSONNumber = "jsonnumber"
	TagISO8601    = "iso8601"
	TagDecimal    = "decimal"
	TagPositive   = "positive"
	TagJSONString = "jsonstring"
	TagJSONArray  = "jsonarray"
	TagJSONObject = "jsonobject"
)

type rule struct {
	fn      validator.Func
	message MessageFunc
}

var genericRules = map[string]rule{
	TagJSONNumber: {
		fn: isJSONNumber,
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be a number"
		},
	},
	TagISO8601: {
		fn: isISO8601,
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be a valid ISO 8601 date string"
		},
	},
	TagDecimal: {
		fn: isDecimal,
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be a valid number"
		},
	},
	TagPositive: {
		fn: isPositive,
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be a positive number"
		},
	},
	TagJSONString: {
		fn: isJSONString,
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be a string"
		},
	},
	TagJSONArray: {
		fn: func(fl validator.FieldLevel) bool { return fl.Field().Kind() == reflect.Slice },
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be an array"
		},
	},
	TagJSONObject: {
		fn: func(fl validator.FieldLevel) bool { return fl.Field().Kind() == reflect.Map },
		message: func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be an object"
		},
	},
}

var jsonNumberType = reflect.TypeOf(json.Number(""))

// isJSONNumber accepts decoded JSON numbers only, never numeric strings.
func isJSONNumber(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Type() == jsonNumberType {
		_, err := decimal.NewFromString(field.String())
		return err == nil
	}
	switch field.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// isJSONString rejects numbers decoded with UseNumber, which are strings in Go.
func isJSONString(fl validator.FieldLevel) bool {
	field := fl.Field()
	return field.Kind() == reflect.String && field.Type() != jsonNumberType
}

func isISO8601(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String || field.Type() == jsonNumberType {
		return false
	}
	_, err := ParseISO8601(field.String())
	return err == nil
}

func isDecimal(fl validator.FieldLevel) bool {
	_, ok := fieldDecimal(fl.Field())
	return ok
}

func isPositive(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl.Field())
	return ok && d.IsPositive()
}

func fieldDecimal(field reflect.Value) (decimal.Decimal, bool) {
	switch field.Kind() {
	case reflect.String:
		d, err := decimal.NewFromString(strings.TrimSpace(field.String()))
		return d, err == nil
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(field.Float()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(field.Int()), true
	}
	return decimal.Decimal{}, false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var errNotISO8601 = errors.New("not an ISO 8601 date string")

// ParseISO8601 parses the date and date-time forms accepted by the API.
// The returned time keeps the offset written in the input.
func ParseISO8601(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errNotISO8601
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNotISO8601
}
