package scraper

import (
	"reflect"
	"testing"

	"github.com/user/spidermap/internal/entity"
)

func TestFinalizeDedupesByIdentity(t *testing.T) {
	in := []entity.Record{
		{Name: "Cafe", Address: "1 Main St", Phone: "111-1111"},
		{Name: "Bakery", Address: "2 Main St"},
		{Name: "Cafe", Address: "1 Main St", Phone: "222-2222"},
		{Name: "Cafe", Address: "9 Side St"},
	}
	got := Finalize(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Phone != "111-1111" {
		t.Errorf("kept phone %q, want the first record", got[0].Phone)
	}
	if got[1].Name != "Bakery" || got[2].Address != "9 Side St" {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	in := []entity.Record{
		{Name: "A", Address: "x"},
		{Name: "A", Address: "x"},
		{Name: "B"},
		{Address: "x"},
	}
	once := Finalize(in)
	twice := Finalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Finalize not idempotent:\n%+v\n%+v", once, twice)
	}
	if len(Finalize(nil)) != 0 {
		t.Error("Finalize(nil) not empty")
	}
}
