package combo

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/expand"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
)

func axis(id, fragment string, values ...string) expand.Resolved {
	return expand.Resolved{
		Setting:    &schema.Setting{ID: id, Value: fragment},
		Candidates: values,
	}
}

func fixedSet(id, fragment string, values ...string) expand.Resolved {
	return expand.Resolved{
		Setting:  &schema.Setting{ID: id, Value: fragment},
		FixedSet: values,
	}
}

func TestCount_ProductOfAxes(t *testing.T) {
	resolved := []expand.Resolved{
		axis("a", "a", "1", "2", "3"),
		axis("b", "b", "x"),
		axis("c", "c", "p", "q"),
		fixedSet("d", "d", "en", "kz"),
	}
	if got := Count(resolved); got != 6 {
		t.Errorf("expected 6 combinations, got %d", got)
	}
}

func TestCount_NoAxesYieldsOne(t *testing.T) {
	resolved := []expand.Resolved{
		axis("a", "a", "1"),
		fixedSet("b", "b", "en"),
	}
	if got := Count(resolved); got != 1 {
		t.Errorf("expected 1 combination, got %d", got)
	}
}

func TestGenerate_FirstAxisVariesSlowest(t *testing.T) {
	resolved := []expand.Resolved{
		axis("type", "type", "4", "8"),
		axis("mode", "mode", "GPIO", "ADC_EXT"),
	}
	combos, err := Generate(resolved, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, c := range combos {
		got = append(got, c.String())
	}
	want := []string{
		"type=4 mode=GPIO",
		"type=4 mode=ADC_EXT",
		"type=8 mode=GPIO",
		"type=8 mode=ADC_EXT",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestGenerate_IndexesAreSequential(t *testing.T) {
	combos, err := Generate([]expand.Resolved{axis("a", "a", "1", "2", "3")}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range combos {
		if c.Index != i {
			t.Errorf("combination %d has index %d", i, c.Index)
		}
	}
}

func TestGenerate_FixedSetAppliedToEveryCombination(t *testing.T) {
	resolved := []expand.Resolved{
		axis("type", "type", "4", "8"),
		fixedSet("lang", "lang", "en", "kz"),
	}
	combos, err := Generate(resolved, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(combos) != 2 {
		t.Fatalf("fixed set must not multiply the matrix, got %d combinations", len(combos))
	}
	for _, c := range combos {
		a, ok := c.Get("lang")
		if !ok {
			t.Fatalf("combination %d missing fixed set assignment", c.Index)
		}
		if !reflect.DeepEqual(a.Set, []string{"en", "kz"}) {
			t.Errorf("combination %d: expected full selection, got %v", c.Index, a.Set)
		}
	}
}

func TestGenerate_OmittedSettingExcluded(t *testing.T) {
	resolved := []expand.Resolved{
		axis("type", "type", "4"),
		{Setting: &schema.Setting{ID: "opt", Value: "opt"}, Omitted: true},
	}
	combos, err := Generate(resolved, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := combos[0].Get("opt"); ok {
		t.Error("omitted setting must not appear in combinations")
	}
}

func TestGenerate_CeilingCheckedBeforeGeneration(t *testing.T) {
	resolved := []expand.Resolved{
		axis("a", "a", "1", "2", "3", "4"),
		axis("b", "b", "1", "2", "3", "4"),
	}
	_, err := Generate(resolved, 10)
	if err == nil {
		t.Fatal("expected explosion error")
	}
	if !buildererrors.IsCategory(err, buildererrors.CategoryExplosion) {
		t.Errorf("expected explosion category, got %v", buildererrors.GetCategory(err))
	}
}

func TestCount_SaturatesInsteadOfWrapping(t *testing.T) {
	// 64 two-valued axes: the true product is 2^64, which wraps native int
	// to 0 and would sail past any ceiling.
	var resolved []expand.Resolved
	for i := 0; i < 64; i++ {
		resolved = append(resolved, axis(fmt.Sprintf("a%d", i), "a", "1", "2"))
	}

	if got := Count(resolved); got != math.MaxInt {
		t.Errorf("expected saturated count %d, got %d", math.MaxInt, got)
	}

	_, err := Generate(resolved, 4096)
	if err == nil {
		t.Fatal("expected explosion error for a wrapped product")
	}
	if !buildererrors.IsCategory(err, buildererrors.CategoryExplosion) {
		t.Errorf("expected explosion category, got %v", buildererrors.GetCategory(err))
	}
}

func TestGenerate_ZeroCeilingUsesDefault(t *testing.T) {
	combos, err := Generate([]expand.Resolved{axis("a", "a", "1", "2")}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(combos) != 2 {
		t.Errorf("expected 2 combinations, got %d", len(combos))
	}
}

func TestCombinationString_SetRendering(t *testing.T) {
	c := Combination{Assignments: []Assignment{
		{SettingID: "type", Value: "4"},
		{SettingID: "lang", Set: []string{"en", "kz"}},
	}}
	if got, want := c.String(), "type=4 lang=[en kz]"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
