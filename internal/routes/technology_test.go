package routes

import (
	"encoding/json"
	"testing"

	"tvcore/internal/middleware"
)

func TestParseTechnologyRoundTrip(t *testing.T) {
	for _, tech := range Technologies {
		parsed, err := ParseTechnology(tech.String())
		if err != nil || parsed != tech {
			t.Fatalf("round trip %s: got %v %v", tech, parsed, err)
		}
	}
	if tech, err := ParseTechnology(" IP "); err != nil || tech != IPPrimary {
		t.Fatalf("expected ip shorthand to map to primary, got %v %v", tech, err)
	}
	if _, err := ParseTechnology("dsl"); err == nil {
		t.Fatal("expected unknown technology to fail")
	}
}

func TestTechnologyJSONUsesNames(t *testing.T) {
	data, err := json.Marshal(map[string]Technology{"t": Satellite})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"t":"satellite"}` {
		t.Fatalf("unexpected json %s", data)
	}
	var back map[string]Technology
	if err := json.Unmarshal(data, &back); err != nil || back["t"] != Satellite {
		t.Fatalf("unmarshal: %v %v", back, err)
	}
}

func TestTechnologyForFrontend(t *testing.T) {
	cases := map[middleware.FrontendType]Technology{
		middleware.FrontendTerrestrial: Terrestrial,
		middleware.FrontendCable:       Cable,
		middleware.FrontendSatellite:   Satellite,
		middleware.FrontendIP:          IPPrimary,
	}
	for flag, want := range cases {
		got, ok := TechnologyForFrontend(flag)
		if !ok || got != want {
			t.Fatalf("%s: got %v %v", flag, got, ok)
		}
		if !got.IsIP() && got.FrontendType() != flag {
			t.Fatalf("%s: frontend type mismatch %s", got, got.FrontendType())
		}
	}
	if _, ok := TechnologyForFrontend(middleware.FrontendTerrestrial | middleware.FrontendIP); ok {
		t.Fatal("combined flags must not map to a single technology")
	}
}
