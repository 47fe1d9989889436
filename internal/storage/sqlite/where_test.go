package sqlite

import (
	"reflect"
	"testing"

	"github.com/mexer-app/backend/internal/query"
)

func TestBuildWhereEmpty(t *testing.T) {
	where, args, err := buildWhere(nil)
	if err != nil {
		t.Fatalf("buildWhere failed: %v", err)
	}
	if where != "" || args != nil {
		t.Errorf("empty predicate list must yield no clause, got %q %v", where, args)
	}
}

func TestBuildWhereLowering(t *testing.T) {
	preds := []query.Predicate{
		query.Eq{Col: "Dataset", Value: 1},
		query.In{Col: "Country", Values: []int{3, 7}},
		query.Range{Col: "Year", Low: 1971, High: 1975},
	}

	where, args, err := buildWhere(preds)
	if err != nil {
		t.Fatalf("buildWhere failed: %v", err)
	}

	want := " WHERE Dataset = ? AND Country IN (?, ?) AND Year BETWEEN ? AND ?"
	if where != want {
		t.Errorf("clause = %q, want %q", where, want)
	}

	wantArgs := []interface{}{1, 3, 7, 1971, 1975}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestBuildWhereDegenerateRange(t *testing.T) {
	where, args, err := buildWhere([]query.Predicate{
		query.Range{Col: "Year", Low: 1971, High: 1971},
	})
	if err != nil {
		t.Fatalf("buildWhere failed: %v", err)
	}
	if where != " WHERE Year BETWEEN ? AND ?" {
		t.Errorf("unexpected clause %q", where)
	}
	if !reflect.DeepEqual(args, []interface{}{1971, 1971}) {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildWhereRejectsUnknownColumn(t *testing.T) {
	_, _, err := buildWhere([]query.Predicate{
		query.Eq{Col: "value; DROP TABLE PSUT", Value: 1},
	})
	if err == nil {
		t.Error("columns outside the whitelist must be rejected")
	}
}
