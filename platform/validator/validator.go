// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MessageFunc renders a human readable constraint message for a failed tag.
type MessageFunc func(fe validator.FieldError) string

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v        *validator.Validate
	messages map[string]MessageFunc
}

// New creates a new Validator instance with the generic rules registered.
// Domain-specific validation rules can be registered using RegisterRule.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonTagName)

	val := &Validator{
		v:        v,
		messages: defaultMessages(),
	}
	for tag, rule := range genericRules {
		if err := val.RegisterRule(tag, rule.fn, rule.message); err != nil {
			panic(fmt.Sprintf("register validation %q: %v", tag, err))
		}
	}
	return val
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// RegisterRule registers a custom validation function together with the
// message used when it fails. A nil message keeps the generic one.
func (val *Validator) RegisterRule(tag string, fn validator.Func, message MessageFunc) error {
	if err := val.v.RegisterValidation(tag, fn); err != nil {
		return err
	}
	if message != nil {
		val.messages[tag] = message
	}
	return nil
}

// RegisterStructRule registers a struct-level check for the given types.
// Errors it reports are rendered with the message registered for their tag.
func (val *Validator) RegisterStructRule(tag string, fn validator.StructLevelFunc, message MessageFunc, types ...interface{}) {
	val.v.RegisterStructValidation(fn, types...)
	if message != nil {
		val.messages[tag] = message
	}
}

// Message renders the constraint message for a single field error.
func (val *Validator) Message(fe validator.FieldError) string {
	if fn, ok := val.messages[fe.Tag()]; ok {
		return fn(fe)
	}
	return fmt.Sprintf("%s failed on the %q rule", fieldLabel(fe), fe.Tag())
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func fieldLabel(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "Value"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func defaultMessages() map[string]MessageFunc {
	return map[string]MessageFunc{
		"required": func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must not be empty"
		},
		"oneof": func(fe validator.FieldError) string {
			return fmt.Sprintf("%s must be one of: %s", fieldLabel(fe), fe.Param())
		},
		"uuid": func(fe validator.FieldError) string {
			return fieldLabel(fe) + " must be a valid UUID"
		},
	}
}
