package sqlvalue

import "testing"

func TestValueEqual(t *testing.T) {
	if !NewInteger(5).Equal(NewInteger(5)) {
		t.Fatal("expected equal integers")
	}
	if NewInteger(5).Equal(NewVarchar("5")) {
		t.Fatal("cross-type values must never be equal")
	}
}

func TestValueCompareWithinCase(t *testing.T) {
	cmp, err := NewInteger(3).Compare(NewInteger(7))
	if err != nil || cmp != -1 {
		t.Fatalf("got (%d, %v), want (-1, nil)", cmp, err)
	}

	cmp, err = NewBoolean(false).Compare(NewBoolean(true))
	if err != nil || cmp != -1 {
		t.Fatalf("false should order before true, got (%d, %v)", cmp, err)
	}

	cmp, err = NewVarchar("abc").Compare(NewVarchar("abd"))
	if err != nil || cmp != -1 {
		t.Fatalf("string compare failed: (%d, %v)", cmp, err)
	}
}

func TestValueCompareCrossCaseErrors(t *testing.T) {
	_, err := NewInteger(1).Compare(NewBoolean(true))
	if err == nil {
		t.Fatal("expected ErrTypeMismatch")
	}
}

func TestSchemaRejectsDuplicateColumns(t *testing.T) {
	_, err := NewSchema([]Column{
		{Name: "id", Type: Integer},
		{Name: "id", Type: Varchar},
	})
	if err == nil {
		t.Fatal("expected duplicate column error")
	}
}

func TestSchemaValidateRow(t *testing.T) {
	s, err := NewSchema([]Column{
		{Name: "id", Type: Integer},
		{Name: "name", Type: Varchar},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.ValidateRow([]Value{NewInteger(1), NewVarchar("a")}); err != nil {
		t.Fatalf("valid row rejected: %v", err)
	}
	if err := s.ValidateRow([]Value{NewInteger(1)}); err == nil {
		t.Fatal("expected arity mismatch error")
	}
	if err := s.ValidateRow([]Value{NewInteger(1), NewInteger(2)}); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestSchemaIndexOfCaseSensitive(t *testing.T) {
	s, _ := NewSchema([]Column{{Name: "Id", Type: Integer}})
	if s.IndexOf("Id") != 0 {
		t.Fatal("expected exact case match")
	}
	if s.IndexOf("id") != -1 {
		t.Fatal("lookup must be case-sensitive")
	}
}
