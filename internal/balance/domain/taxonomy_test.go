package domain

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestEverySubtypeHasAValidParent(t *testing.T) {
	for _, subtype := range Subtypes() {
		parent, ok := ParentType(subtype)
		if !ok {
			t.Fatalf("subtype %s has no parent type", subtype)
		}
		if !ValidPair(parent, subtype) {
			t.Fatalf("expected %s/%s to be a valid pair", parent, subtype)
		}
	}
}

func TestPairsOutsideTheTableAreInvalid(t *testing.T) {
	for _, energyType := range Types() {
		own := make(map[EnergySubtype]bool)
		for _, subtype := range SubtypesFor(energyType) {
			own[subtype] = true
		}
		for _, subtype := range Subtypes() {
			if own[subtype] {
				continue
			}
			if ValidPair(energyType, subtype) {
				t.Fatalf("expected %s/%s to be an invalid pair", energyType, subtype)
			}
		}
	}

	if ValidPair(EnergyType("SOLAR"), Wind) {
		t.Fatalf("expected unknown type to never pair")
	}
	if ValidPair(Renewable, EnergySubtype("SOLAR")) {
		t.Fatalf("expected unknown subtype to never pair")
	}
}

func TestSubtypeCounts(t *testing.T) {
	cases := map[EnergyType]int{
		Renewable:    8,
		NonRenewable: 10,
		Storage:      5,
		Demand:       2,
	}
	total := 0
	for energyType, want := range cases {
		if got := len(SubtypesFor(energyType)); got != want {
			t.Fatalf("%s: expected %d subtypes, got %d", energyType, want, got)
		}
		total += want
	}
	if len(Subtypes()) != total {
		t.Fatalf("expected %d subtypes overall, got %d", total, len(Subtypes()))
	}
	if SubtypesFor(EnergyType("OTHER")) != nil {
		t.Fatalf("expected nil subtypes for unknown type")
	}
}

func TestParseAcceptsCanonicalValuesAndDisplayNames(t *testing.T) {
	typeCases := []struct {
		raw  string
		want EnergyType
	}{
		{"RENEWABLE", Renewable},
		{"Renovable", Renewable},
		{"No-Renovable", NonRenewable},
		{" Almacenamiento ", Storage},
		{"DEMAND", Demand},
	}
	for _, tc := range typeCases {
		got, ok := ParseType(tc.raw)
		if !ok || got != tc.want {
			t.Fatalf("ParseType(%q): expected %s, got %s (ok=%v)", tc.raw, tc.want, got, ok)
		}
	}

	subtypeCases := []struct {
		raw  string
		want EnergySubtype
	}{
		{"WIND", Wind},
		{"Eólica", Wind},
		{norm.NFD.String("Eólica"), Wind},
		{"Solar fotovoltaica", SolarPhotovoltaic},
		{"Fuel + Gas", FuelGas},
		{"Entrega batería", BatteryDelivery},
		{"BATERY_DELIVERY", BatteryDelivery},
		{"BATTERY_DELIVERY", BatteryDelivery},
		{"Demanda en b.c.", BCDemand},
	}
	for _, tc := range subtypeCases {
		got, ok := ParseSubtype(tc.raw)
		if !ok || got != tc.want {
			t.Fatalf("ParseSubtype(%q): expected %s, got %s (ok=%v)", tc.raw, tc.want, got, ok)
		}
	}

	for _, raw := range []string{"", "renovable", "Solar", "Hydro"} {
		if _, ok := ParseType(raw); ok {
			t.Fatalf("ParseType(%q): expected not found", raw)
		}
		if _, ok := ParseSubtype(raw); ok {
			t.Fatalf("ParseSubtype(%q): expected not found", raw)
		}
	}
}

func TestDisplayRoundTrip(t *testing.T) {
	for _, energyType := range Types() {
		got, ok := ParseType(energyType.Display())
		if !ok || got != energyType {
			t.Fatalf("display of %s does not resolve back, got %s", energyType, got)
		}
	}
	for _, subtype := range Subtypes() {
		got, ok := ParseSubtype(subtype.Display())
		if !ok || got != subtype {
			t.Fatalf("display of %s does not resolve back, got %s", subtype, got)
		}
	}
	if EnergySubtype("UNKNOWN").Display() != "UNKNOWN" {
		t.Fatalf("expected raw value as display for unknown subtype")
	}
}

func TestPairingErrorNamesExpectedType(t *testing.T) {
	msg := PairingError(Demand, Wind)
	want := `Invalid energy pairing: "Eólica" cannot belong to "Demanda". Expected type: "Renovable"`
	if msg != want {
		t.Fatalf("expected %q, got %q", want, msg)
	}
}

func TestDuplicateSubtypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for subtype listed twice")
		}
	}()
	buildIndex([]typeEntry{
		{energyType: Renewable, subtypes: []subtypeEntry{{subtype: Wind}}},
		{energyType: Demand, subtypes: []subtypeEntry{{subtype: Wind}}},
	})
}
