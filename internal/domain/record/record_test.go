package record

import (
	"reflect"
	"testing"
)

func TestSetAttributeReplacesInPlace(t *testing.T) {
	rec := New(TypeSession, 1, 2)
	rec.SetAttribute("Notes", Scalar("first"))
	rec.SetAttribute("Targets", List("101", "205"))
	rec.SetAttribute("Notes", Scalar("second"))

	if len(rec.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(rec.Attributes))
	}
	if rec.Attributes[0].Field != "Notes" {
		t.Errorf("replacement changed field order: got %q first", rec.Attributes[0].Field)
	}
	val, ok := rec.Attribute("Notes")
	if !ok || val.ScalarValue() != "second" {
		t.Errorf("expected Notes = %q, got %q (present: %v)", "second", val.ScalarValue(), ok)
	}
}

func TestRemoveAttribute(t *testing.T) {
	rec := New(TypeTutorial, 1, 2)
	rec.SetAttribute("Topic", Scalar("Fractions"))

	if !rec.RemoveAttribute("Topic") {
		t.Fatal("expected removal of existing attribute to report true")
	}
	if rec.RemoveAttribute("Topic") {
		t.Error("expected removal of missing attribute to report false")
	}
	if _, ok := rec.Attribute("Topic"); ok {
		t.Error("attribute still present after removal")
	}
}

func TestAttributeValueForms(t *testing.T) {
	cases := []struct {
		name       string
		val        AttributeValue
		wantScalar string
		wantList   []string
		wantEmpty  bool
	}{
		{name: "scalar", val: Scalar("85"), wantScalar: "85", wantList: []string{"85"}},
		{name: "empty scalar", val: Scalar(""), wantScalar: "", wantList: nil, wantEmpty: true},
		{name: "list", val: List("101", "205"), wantScalar: "101, 205", wantList: []string{"101", "205"}},
		{name: "empty list", val: List(), wantScalar: "", wantList: nil, wantEmpty: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.val.ScalarValue(); got != tc.wantScalar {
				t.Errorf("ScalarValue() = %q, want %q", got, tc.wantScalar)
			}
			if got := tc.val.ListValue(); !reflect.DeepEqual(got, tc.wantList) {
				t.Errorf("ListValue() = %v, want %v", got, tc.wantList)
			}
			if got := tc.val.IsEmpty(); got != tc.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tc.wantEmpty)
			}
		})
	}
}

func TestAttributeValueEqual(t *testing.T) {
	if !List("a", "b").Equal(List("a", "b")) {
		t.Error("identical lists compared unequal")
	}
	if List("a", "b").Equal(List("b", "a")) {
		t.Error("list comparison ignored order")
	}
	if Scalar("a").Equal(List("a")) {
		t.Error("scalar compared equal to single-element list")
	}
}

func TestDiff(t *testing.T) {
	old := New(TypeSession, 1, 2)
	old.ID = 10
	old.SetAttribute("Notes", Scalar("draft"))
	old.SetAttribute("Duration", Scalar("30"))
	old.SetAttribute("Outcome", Scalar("Achieved"))

	updated := old.Clone()
	updated.SetAttribute("Notes", Scalar("final"))
	updated.SetAttribute("Targets", List("101"))
	updated.RemoveAttribute("Duration")

	changes := Diff(old, updated)
	want := []FieldChange{
		{Field: "Notes", Old: "draft", New: "final"},
		{Field: "Targets", New: "101"},
		{Field: "Duration", Old: "30"},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("Diff() = %+v, want %+v", changes, want)
	}
}

func TestDiffAgainstNilReportsAdditionsOnly(t *testing.T) {
	rec := New(TypeChallenge, 1, 2)
	rec.SetAttribute("Description", Scalar("catch up on unit 3"))
	rec.SetAttribute("Priority", Scalar(""))

	changes := Diff(nil, rec)
	if len(changes) != 1 || changes[0].Field != "Description" {
		t.Errorf("expected only the non-empty attribute reported, got %+v", changes)
	}
}

func TestClone(t *testing.T) {
	orig := New(TypeSession, 1, 2)
	orig.SetAttribute("Targets", List("101", "205"))

	cp := orig.Clone()
	cp.SetAttribute("Targets", List("999"))

	val, _ := orig.Attribute("Targets")
	if !reflect.DeepEqual(val.ListValue(), []string{"101", "205"}) {
		t.Errorf("mutating the clone changed the original: %v", val.ListValue())
	}
}
