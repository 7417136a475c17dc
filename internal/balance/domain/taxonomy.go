// Package domain holds the energy taxonomy of the electrical balance:
// the four energy types, their subtypes and the display names used by the
// upstream statistics API and the dashboard.
package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EnergyType is a top-level balance category.
type EnergyType string

// EnergySubtype is a specific source or mechanism within an EnergyType.
type EnergySubtype string

const (
	Renewable    EnergyType = "RENEWABLE"
	NonRenewable EnergyType = "NON_RENEWABLE"
	Storage      EnergyType = "STORAGE"
	Demand       EnergyType = "DEMAND"
)

const (
	Hydraulic           EnergySubtype = "HYDRAULIC"
	Wind                EnergySubtype = "WIND"
	SolarPhotovoltaic   EnergySubtype = "SOLAR_PHOTOVOLTAIC"
	SolarThermal        EnergySubtype = "SOLAR_THERMAL"
	Hydroeolic          EnergySubtype = "HYDROEOLIC"
	OtherRenewables     EnergySubtype = "OTHER_RENEWABLES"
	RenewableWaste      EnergySubtype = "RENEWABLE_WASTE"
	RenewableGeneration EnergySubtype = "RENEWABLE_GENERATION"

	Nuclear                EnergySubtype = "NUCLEAR"
	CombinedCycle          EnergySubtype = "COMBINED_CYCLE"
	Carbon                 EnergySubtype = "CARBON"
	DieselEngine           EnergySubtype = "DIESEL_ENGINE"
	GasTurbine             EnergySubtype = "GAS_TURBINE"
	SteamTurbine           EnergySubtype = "STEAM_TURBINE"
	FuelGas                EnergySubtype = "FUEL_GAS"
	Cogeneration           EnergySubtype = "COGENERATION"
	NonRenewableWaste      EnergySubtype = "NON_RENEWABLE_WASTE"
	NonRenewableGeneration EnergySubtype = "NON_RENEWABLE_GENERATION"

	PumpingTurbine     EnergySubtype = "PUMPING_TURBINE"
	PumpingConsumption EnergySubtype = "PUMPING_CONSUMPTION"
	StorageBalance     EnergySubtype = "STORAGE_BALANCE"
	BatteryCharge      EnergySubtype = "BATTERY_CHARGE"
	// BatteryDelivery keeps the stored spelling of existing datasets.
	BatteryDelivery EnergySubtype = "BATERY_DELIVERY"

	InternationalBalance EnergySubtype = "INTERNATIONAL_BALANCE"
	BCDemand             EnergySubtype = "BC_DEMAND"
)

type subtypeEntry struct {
	subtype EnergySubtype
	display string
	aliases []string
}

type typeEntry struct {
	energyType EnergyType
	display    string
	subtypes   []subtypeEntry
}

// catalog is the pairing table. Order is the presentation order.
var catalog = []typeEntry{
	{
		energyType: Renewable,
		display:    "Renovable",
		subtypes: []subtypeEntry{
			{subtype: Hydraulic, display: "Hidráulica"},
			{subtype: Wind, display: "Eólica"},
			{subtype: SolarPhotovoltaic, display: "Solar fotovoltaica"},
			{subtype: SolarThermal, display: "Solar térmica"},
			{subtype: Hydroeolic, display: "Hidroeólica"},
			{subtype: OtherRenewables, display: "Otras renovables"},
			{subtype: RenewableWaste, display: "Residuos renovables"},
			{subtype: RenewableGeneration, display: "Generación renovable"},
		},
	},
	{
		energyType: NonRenewable,
		display:    "No-Renovable",
		subtypes: []subtypeEntry{
			{subtype: Nuclear, display: "Nuclear"},
			{subtype: CombinedCycle, display: "Ciclo combinado"},
			{subtype: Carbon, display: "Carbón"},
			{subtype: DieselEngine, display: "Motores diésel"},
			{subtype: GasTurbine, display: "Turbina de gas"},
			{subtype: SteamTurbine, display: "Turbina de vapor"},
			{subtype: FuelGas, display: "Fuel + Gas"},
			{subtype: Cogeneration, display: "Cogeneración"},
			{subtype: NonRenewableWaste, display: "Residuos no renovables"},
			{subtype: NonRenewableGeneration, display: "Generación no renovable"},
		},
	},
	{
		energyType: Storage,
		display:    "Almacenamiento",
		subtypes: []subtypeEntry{
			{subtype: PumpingTurbine, display: "Turbinación bombeo"},
			{subtype: PumpingConsumption, display: "Consumo bombeo"},
			{subtype: StorageBalance, display: "Saldo almacenamiento"},
			{subtype: BatteryCharge, display: "Carga batería"},
			{subtype: BatteryDelivery, display: "Entrega batería", aliases: []string{"BATTERY_DELIVERY"}},
		},
	},
	{
		energyType: Demand,
		display:    "Demanda",
		subtypes: []subtypeEntry{
			{subtype: InternationalBalance, display: "Saldo I. internacionales"},
			{subtype: BCDemand, display: "Demanda en b.c."},
		},
	},
}

type index struct {
	types           []EnergyType
	subtypes        []EnergySubtype
	typeDisplay     map[EnergyType]string
	subtypeDisplay  map[EnergySubtype]string
	typeByName      map[string]EnergyType
	subtypeByName   map[string]EnergySubtype
	parent          map[EnergySubtype]EnergyType
	subtypesForType map[EnergyType][]EnergySubtype
}

var taxonomy = buildIndex(catalog)

func buildIndex(entries []typeEntry) *index {
	idx := &index{
		typeDisplay:     make(map[EnergyType]string),
		subtypeDisplay:  make(map[EnergySubtype]string),
		typeByName:      make(map[string]EnergyType),
		subtypeByName:   make(map[string]EnergySubtype),
		parent:          make(map[EnergySubtype]EnergyType),
		subtypesForType: make(map[EnergyType][]EnergySubtype),
	}

	for _, entry := range entries {
		idx.types = append(idx.types, entry.energyType)
		idx.typeDisplay[entry.energyType] = entry.display
		idx.typeByName[normalizeName(entry.display)] = entry.energyType

		for _, sub := range entry.subtypes {
			if owner, dup := idx.parent[sub.subtype]; dup {
				panic(fmt.Sprintf("subtype %s listed under %s and %s", sub.subtype, owner, entry.energyType))
			}
			idx.parent[sub.subtype] = entry.energyType
			idx.subtypes = append(idx.subtypes, sub.subtype)
			idx.subtypesForType[entry.energyType] = append(idx.subtypesForType[entry.energyType], sub.subtype)
			idx.subtypeDisplay[sub.subtype] = sub.display
			idx.subtypeByName[normalizeName(sub.display)] = sub.subtype
			for _, alias := range sub.aliases {
				idx.subtypeByName[normalizeName(alias)] = sub.subtype
			}
		}
	}
	return idx
}

// normalizeName folds a display name to NFC so composed and decomposed
// accents resolve to the same entry.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Types returns every energy type in presentation order.
func Types() []EnergyType {
	return append([]EnergyType(nil), taxonomy.types...)
}

// Subtypes returns every energy subtype in presentation order.
func Subtypes() []EnergySubtype {
	return append([]EnergySubtype(nil), taxonomy.subtypes...)
}

// SubtypesFor returns the subtypes that belong to t, or nil for an unknown type.
func SubtypesFor(t EnergyType) []EnergySubtype {
	return append([]EnergySubtype(nil), taxonomy.subtypesForType[t]...)
}

// ParentType returns the type a subtype belongs to.
func ParentType(s EnergySubtype) (EnergyType, bool) {
	t, ok := taxonomy.parent[s]
	return t, ok
}

// ValidPair reports whether subtype s belongs to type t.
func ValidPair(t EnergyType, s EnergySubtype) bool {
	parent, ok := taxonomy.parent[s]
	return ok && parent == t
}

// ParseType resolves a canonical value or a display name to an EnergyType.
// The canonical value is tried first.
func ParseType(raw string) (EnergyType, bool) {
	candidate := EnergyType(strings.TrimSpace(raw))
	if candidate.IsValid() {
		return candidate, true
	}
	t, ok := taxonomy.typeByName[normalizeName(raw)]
	return t, ok
}

// ParseSubtype resolves a canonical value or a display name to an EnergySubtype.
// The canonical value is tried first.
func ParseSubtype(raw string) (EnergySubtype, bool) {
	candidate := EnergySubtype(strings.TrimSpace(raw))
	if candidate.IsValid() {
		return candidate, true
	}
	s, ok := taxonomy.subtypeByName[normalizeName(raw)]
	return s, ok
}

// IsValid reports whether t is one of the known types.
func (t EnergyType) IsValid() bool {
	_, ok := taxonomy.typeDisplay[t]
	return ok
}

// Display returns the display name, or the raw value for an unknown type.
func (t EnergyType) Display() string {
	if name, ok := taxonomy.typeDisplay[t]; ok {
		return name
	}
	return string(t)
}

// IsValid reports whether s is one of the known subtypes.
func (s EnergySubtype) IsValid() bool {
	_, ok := taxonomy.subtypeDisplay[s]
	return ok
}

// Display returns the display name, or the raw value for an unknown subtype.
func (s EnergySubtype) Display() string {
	if name, ok := taxonomy.subtypeDisplay[s]; ok {
		return name
	}
	return string(s)
}

// PairingError describes a subtype filed under the wrong type.
func PairingError(t EnergyType, s EnergySubtype) string {
	expected, ok := ParentType(s)
	expectedName := "unknown"
	if ok {
		expectedName = expected.Display()
	}
	return fmt.Sprintf("Invalid energy pairing: %q cannot belong to %q. Expected type: %q", s.Display(), t.Display(), expectedName)
}
