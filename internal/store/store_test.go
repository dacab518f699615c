package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	if err := m.Put("project/p1", []byte(`{"html":"<html></html>"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := m.Get("project/p1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"html":"<html></html>"}` {
		t.Errorf("unexpected value: %s", got)
	}

	if err := m.Delete("project/p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get("project/p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryListByPrefix(t *testing.T) {
	m := NewMemory()
	for _, k := range []string{"session/b", "session/a", "project/x"} {
		if err := m.Put(k, []byte("v")); err != nil {
			t.Fatalf("Put(%q) failed: %v", k, err)
		}
	}
	keys, err := m.List("session/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"session/a", "session/b"}) {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	_ = m.Put("k", []byte("abc"))
	got, _ := m.Get("k")
	got[0] = 'z'
	again, _ := m.Get("k")
	if string(again) != "abc" {
		t.Error("stored value was mutated through a Get result")
	}
}
