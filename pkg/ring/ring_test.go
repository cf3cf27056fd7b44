package ring

import "testing"

func TestAppendBelowCapacity(t *testing.T) {
	b := New[int](4)
	b.Append(1)
	b.Append(2)
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
	got := b.Values()
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("values = %v", got)
	}
}

func TestEvictionKeepsNewest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 7; i++ {
		b.Append(i)
	}
	if b.Len() != 3 {
		t.Fatalf("len = %d, want 3", b.Len())
	}
	got := b.Values()
	want := []int{5, 6, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}
}

func TestFirstLast(t *testing.T) {
	b := New[string](2)
	if _, ok := b.Last(); ok {
		t.Fatalf("expected empty")
	}
	b.Append("a")
	b.Append("b")
	b.Append("c")
	if v, _ := b.First(); v != "b" {
		t.Fatalf("first = %q", v)
	}
	if v, _ := b.Last(); v != "c" {
		t.Fatalf("last = %q", v)
	}
}

func TestLenNeverExceedsCapacity(t *testing.T) {
	b := New[float64](5)
	for i := 0; i < 100; i++ {
		b.Append(float64(i))
		if b.Len() > b.Cap() {
			t.Fatalf("len %d exceeds cap %d", b.Len(), b.Cap())
		}
	}
}
