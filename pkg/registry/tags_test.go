package registry

import (
	"reflect"
	"testing"
)

func TestPaginateNoParams(t *testing.T) {
	items := []string{"a", "b", "c"}
	page, next := paginate(items, "", "")
	if !reflect.DeepEqual(page, items) || next != "" {
		t.Errorf("got page=%v next=%q", page, next)
	}
}

func TestPaginateWithN(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	page, next := paginate(items, "2", "")
	if !reflect.DeepEqual(page, []string{"a", "b"}) || next != "b" {
		t.Errorf("got page=%v next=%q", page, next)
	}
}

func TestPaginateWithLast(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	page, next := paginate(items, "", "b")
	if !reflect.DeepEqual(page, []string{"c", "d"}) || next != "" {
		t.Errorf("got page=%v next=%q", page, next)
	}
}

func TestPaginateExhausted(t *testing.T) {
	items := []string{"a", "b"}
	page, next := paginate(items, "", "b")
	if page != nil || next != "" {
		t.Errorf("got page=%v next=%q", page, next)
	}
}
