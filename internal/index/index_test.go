package index

// index_test.go covers the single-writer / many-reader contract of the
// Key Index.

import (
	"fmt"
	"sync"
	"testing"

	"github.com/termkv/termkv/internal/record"
)

func pos(term, offset, length uint64) record.Position {
	return record.Position{Term: term, Offset: offset, Len: length}
}

func TestSetGetRemove(t *testing.T) {
	idx := New()

	if _, found := idx.Get("a"); found {
		t.Fatal("empty index reported a hit")
	}

	if _, had := idx.Set("a", pos(1, 0, 10)); had {
		t.Fatal("first Set displaced something")
	}
	got, found := idx.Get("a")
	if !found || got != pos(1, 0, 10) {
		t.Fatalf("Get a: got (%+v, %v)", got, found)
	}

	prev, had := idx.Set("a", pos(1, 10, 20))
	if !had || prev != pos(1, 0, 10) {
		t.Fatalf("overwrite: got (%+v, %v), want displaced first pos", prev, had)
	}

	prev, had = idx.Remove("a")
	if !had || prev != pos(1, 10, 20) {
		t.Fatalf("Remove: got (%+v, %v)", prev, had)
	}
	if _, found := idx.Get("a"); found {
		t.Fatal("Get after Remove reported a hit")
	}
	if _, had := idx.Remove("a"); had {
		t.Fatal("second Remove reported a hit")
	}
}

func TestAllIsKeyOrdered(t *testing.T) {
	idx := New()
	for _, key := range []string{"delta", "alpha", "charlie", "bravo"} {
		idx.Set(key, pos(1, 0, 1))
	}

	all := idx.All()
	if len(all) != 4 {
		t.Fatalf("All: %d entries, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("All not key-ordered: %q before %q", all[i-1].Key, all[i].Key)
		}
	}
}

func TestReadersDuringWrites(t *testing.T) {
	// One writer mutating, many readers doing lock-free lookups. Run
	// under -race this exercises the copy-on-write publication path.
	idx := New()
	const keys = 64

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				key := fmt.Sprintf("k%d", (i+r)%keys)
				if p, found := idx.Get(key); found && p.Len == 0 {
					t.Errorf("reader observed zero-length position for %s", key)
					return
				}
			}
		}()
	}

	for round := 0; round < 200; round++ {
		for k := 0; k < keys; k++ {
			idx.Set(fmt.Sprintf("k%d", k), pos(uint64(round+1), uint64(k), uint64(k+1)))
		}
		if round%3 == 0 {
			idx.Remove(fmt.Sprintf("k%d", round%keys))
		}
	}
	close(stop)
	wg.Wait()

	// The final round re-set every key, so each must carry its term.
	for k := 0; k < keys; k++ {
		key := fmt.Sprintf("k%d", k)
		p, found := idx.Get(key)
		if !found || p.Term != 200 {
			t.Errorf("Get %s: got (%+v, %v), want term 200", key, p, found)
		}
	}
}
