package maybe

import (
	"database/sql"
	"testing"
)

func TestMaybe(t *testing.T) {
	if v := Some(3); !v.IsValid() || v.Value() != 3 {
		t.Errorf("unexpected Some %+v", v)
	}
	if v := None[int](); v.IsValid() || v.ValueOrDefault(7) != 7 {
		t.Errorf("unexpected None %+v", v)
	}
	if v := FromNullFloat64(sql.NullFloat64{Float64: 1.5, Valid: true}); v.ValueOrDefault(0) != 1.5 {
		t.Errorf("unexpected valid null float %+v", v)
	}
	if v := FromNullFloat64(sql.NullFloat64{Float64: 1.5}); v.IsValid() {
		t.Errorf("expected invalid null float to be absent, got %+v", v)
	}
}
