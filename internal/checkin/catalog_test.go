package checkin

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeTestCatalog(t *testing.T) (questionsPath, responsesPath string) {
	t.Helper()
	dir := t.TempDir()
	questionsPath = filepath.Join(dir, "questions.json")
	responsesPath = filepath.Join(dir, "responses.json")

	questions := `[
		{"key":"mood","type":"scale_1_5","text":"How is your mood, 1-5?","enabled_by_default":true,"category":"mood"},
		{"key":"energy","type":"scale_1_5","text":"How is your energy, 1-5?","enabled_by_default":true,"category":"health"},
		{"key":"slept_hours","type":"number","text":"How many hours did you sleep?","enabled_by_default":true,"category":"sleep","validation":{"min":0,"max":24}},
		{"key":"social","type":"yes_no","text":"Did you talk to anyone today?","enabled_by_default":true,"category":"social"},
		{"key":"daily_reflection","type":"optional_text","text":"Anything else on your mind?","enabled_by_default":true,"category":"reflection"}
	]`
	responses := `{
		"responses": {
			"mood": {"4": ["Glad to hear it!"], "true": ["Nice."], "false": ["That's okay."]},
			"social": {"true": ["Nice."], "false": ["That's okay."]}
		},
		"transition_phrases": ["Next up,"]
	}`
	if err := os.WriteFile(questionsPath, []byte(questions), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(responsesPath, []byte(responses), 0o644); err != nil {
		t.Fatal(err)
	}
	return questionsPath, responsesPath
}

func TestValidateScale(t *testing.T) {
	qp, rp := writeTestCatalog(t)
	cat, err := LoadCatalog(qp, rp)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(cat, rand.New(rand.NewSource(1)))

	cases := []struct {
		raw     string
		wantOK  bool
		wantVal any
	}{
		{"4", true, 4},
		{"four", true, 4},
		{"4.0", true, 4},
		{"three and a half", false, nil}, // rounds to 4, but let's check directly below
		{"100%", false, nil},
		{"skip", true, SKIPPED},
		{"banana", false, nil},
		{"6", false, nil},
	}
	for _, tc := range cases {
		ok, val, _ := e.Validate("mood", tc.raw)
		if tc.raw == "three and a half" {
			if !ok || val != 4 {
				t.Errorf("three and a half: got ok=%v val=%v, want rounded to 4", ok, val)
			}
			continue
		}
		if tc.raw == "100%" {
			if ok {
				t.Errorf("100%%: got ok=%v val=%v, want rejection (100 is out of the 1-5 range)", ok, val)
			}
			continue
		}
		if ok != tc.wantOK {
			t.Errorf("Validate(%q) ok=%v, want %v", tc.raw, ok, tc.wantOK)
		}
		if tc.wantOK && val != tc.wantVal {
			t.Errorf("Validate(%q) val=%v, want %v", tc.raw, val, tc.wantVal)
		}
	}
}

func TestValidateSkipIdempotent(t *testing.T) {
	qp, rp := writeTestCatalog(t)
	cat, _ := LoadCatalog(qp, rp)
	e := NewEngine(cat, rand.New(rand.NewSource(1)))

	for _, qkey := range []string{"mood", "slept_hours", "social", "daily_reflection"} {
		ok, val, _ := e.Validate(qkey, "skip")
		if !ok || val != SKIPPED {
			t.Errorf("Validate(%q, skip) = %v, %v; want true, SKIPPED", qkey, ok, val)
		}
	}
}

func TestValidateYesNo(t *testing.T) {
	qp, rp := writeTestCatalog(t)
	cat, _ := LoadCatalog(qp, rp)
	e := NewEngine(cat, rand.New(rand.NewSource(1)))

	ok, val, _ := e.Validate("social", "yeah")
	if !ok || val != true {
		t.Fatalf("got %v, %v", ok, val)
	}
	ok, val, _ = e.Validate("social", "nope")
	if !ok || val != false {
		t.Fatalf("got %v, %v", ok, val)
	}
	ok, _, errMsg := e.Validate("social", "maybe")
	if ok || errMsg == "" {
		t.Fatalf("expected validation failure with message, got ok=%v msg=%q", ok, errMsg)
	}
}

func TestBuildNextWithAndWithoutStatement(t *testing.T) {
	qp, rp := writeTestCatalog(t)
	cat, _ := LoadCatalog(qp, rp)
	e := NewEngine(cat, rand.New(rand.NewSource(1)))

	withStatement := e.BuildNext("energy", "mood", 4)
	if withStatement != "Glad to hear it!\n\nNext up, How is your energy, 1-5?" {
		t.Errorf("unexpected composition: %q", withStatement)
	}

	withoutStatement := e.BuildNext("social", "energy", 2)
	if withoutStatement != "Did you talk to anyone today?" {
		t.Errorf("unexpected composition: %q", withoutStatement)
	}
}
