package transport

import (
	"fmt"

	"electric_balance_backend/internal/balance/domain"
	"electric_balance_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// Validation tags for the energy taxonomy.
const (
	TagEnergyType    = "energy_type"
	TagEnergySubtype = "energy_subtype"
	TagEnergyPair    = "energy_pair"
)

// RegisterValidations installs the taxonomy rules on val. Type and subtype
// accept canonical values and display names alike.
func RegisterValidations(val *validator.Validator) error {
	if err := val.RegisterRule(TagEnergyType, isEnergyType, func(playground.FieldError) string {
		return "Invalid energy type"
	}); err != nil {
		return fmt.Errorf("register %s: %w", TagEnergyType, err)
	}
	if err := val.RegisterRule(TagEnergySubtype, isEnergySubtype, func(playground.FieldError) string {
		return "Invalid energy subtype"
	}); err != nil {
		return fmt.Errorf("register %s: %w", TagEnergySubtype, err)
	}

	val.RegisterStructRule(TagEnergyPair, validatePair, pairMessage, CreateBalanceInput{}, QueryRequest{})
	return nil
}

func isEnergyType(fl playground.FieldLevel) bool {
	_, ok := domain.ParseType(fl.Field().String())
	return ok
}

func isEnergySubtype(fl playground.FieldLevel) bool {
	_, ok := domain.ParseSubtype(fl.Field().String())
	return ok
}

// validatePair flags a subtype filed under another type. Unknown or missing
// values are left to the field rules so each row reports a single reason.
func validatePair(sl playground.StructLevel) {
	var rawType, rawSubtype string
	switch in := sl.Current().Interface().(type) {
	case CreateBalanceInput:
		rawType, rawSubtype = in.Type, in.Subtype
	case QueryRequest:
		rawType, rawSubtype = in.Type, in.Subtype
	default:
		return
	}
	if rawType == "" || rawSubtype == "" {
		return
	}

	energy, okType := domain.ParseType(rawType)
	subtype, okSubtype := domain.ParseSubtype(rawSubtype)
	if !okType || !okSubtype || domain.ValidPair(energy, subtype) {
		return
	}
	sl.ReportError(rawSubtype, "subtype", "Subtype", TagEnergyPair, string(energy))
}

func pairMessage(fe playground.FieldError) string {
	raw, _ := fe.Value().(string)
	subtype, ok := domain.ParseSubtype(raw)
	if !ok {
		return "Energy type and subtype are not compatible"
	}
	return domain.PairingError(domain.EnergyType(fe.Param()), subtype)
}
