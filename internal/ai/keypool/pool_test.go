package keypool

import "testing"

func TestSelectCoversAllKeys(t *testing.T) {
	keys := []string{"k1", "k2", "k3", "k4"}
	p := New(keys)

	seen := make(map[string]bool)
	// Marking each selection failed forces the pool through every key before
	// the optimistic reset kicks in.
	for i := 0; i < len(keys); i++ {
		key, ok := p.Select("")
		if !ok {
			t.Fatalf("selection %d: pool returned no key", i)
		}
		if seen[key] {
			t.Fatalf("selection %d: key %q repeated before pool exhausted", i, key)
		}
		seen[key] = true
		p.MarkFailed(key)
	}
	for _, k := range keys {
		if !seen[k] {
			t.Errorf("key %q never selected", k)
		}
	}
}

func TestSelectNeverReturnsExcluded(t *testing.T) {
	p := New([]string{"a", "b"})
	for i := 0; i < 50; i++ {
		key, ok := p.Select("a")
		if !ok {
			t.Fatal("pool returned no key")
		}
		if key == "a" {
			t.Fatal("excluded key was selected")
		}
	}
}

func TestSelectResetsWhenAllFailed(t *testing.T) {
	p := New([]string{"a", "b"})
	p.MarkFailed("a")
	p.MarkFailed("b")

	key, ok := p.Select("")
	if !ok {
		t.Fatal("expected reset-and-retry to yield a key")
	}
	if key != "a" && key != "b" {
		t.Fatalf("unexpected key %q", key)
	}
	if p.FailedCount() != 0 {
		t.Errorf("failed set not cleared, count=%d", p.FailedCount())
	}
}

func TestSelectEmptyPool(t *testing.T) {
	p := New(nil)
	if _, ok := p.Select(""); ok {
		t.Fatal("empty pool yielded a key")
	}
}

func TestSelectOnlyExcludedKey(t *testing.T) {
	p := New([]string{"solo"})
	if _, ok := p.Select("solo"); ok {
		t.Fatal("pool with only the excluded key yielded a key")
	}
}

func TestNewDedupesAndDropsEmpty(t *testing.T) {
	p := New([]string{"a", "", "a", "b"})
	if p.Size() != 2 {
		t.Fatalf("expected 2 keys, got %d", p.Size())
	}
}

func TestMarkFailedIdempotent(t *testing.T) {
	p := New([]string{"a", "b"})
	p.MarkFailed("a")
	p.MarkFailed("a")
	if p.FailedCount() != 1 {
		t.Fatalf("expected 1 failed key, got %d", p.FailedCount())
	}
	// Unknown keys must not pollute the failed set.
	p.MarkFailed("nope")
	if p.FailedCount() != 1 {
		t.Fatalf("unknown key was marked failed")
	}
}
