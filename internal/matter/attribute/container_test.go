package attribute

import (
	"sync"
	"testing"
)

func TestContainer_NotifiesOnlyOnChange(t *testing.T) {
	c := NewContainer(Patch{"onOff": false})

	var calls [][]Change
	c.OnChange(func(changes []Change) { calls = append(calls, changes) })

	c.ApplyPatch(Patch{"onOff": false})
	if len(calls) != 0 {
		t.Fatalf("listener called %d times for no-op patch", len(calls))
	}

	c.ApplyPatch(Patch{"onOff": true})
	if len(calls) != 1 {
		t.Fatalf("listener called %d times, want 1", len(calls))
	}
	if got := calls[0][0]; got.Key != "onOff" || got.New != true {
		t.Errorf("change = %+v", got)
	}
}

func TestContainer_CancelListener(t *testing.T) {
	c := NewContainer(nil)
	n := 0
	cancel := c.OnChange(func([]Change) { n++ })

	c.Set("a", 1)
	cancel()
	cancel()
	c.Set("a", 2)

	if n != 1 {
		t.Errorf("listener calls = %d, want 1", n)
	}
}

func TestContainer_ListenerCanRead(t *testing.T) {
	c := NewContainer(nil)
	var seen any
	c.OnChange(func([]Change) {
		// Listeners run outside the write lock.
		seen, _ = c.Get("nodeLabel")
	})

	c.Set("nodeLabel", "Hall")

	if seen != "Hall" {
		t.Errorf("listener read %v, want Hall", seen)
	}
}

func TestContainer_ValuesIsCopy(t *testing.T) {
	c := NewContainer(Patch{"a": 1})
	v := c.Values()
	v["a"] = 99

	if got, _ := c.Get("a"); got != 1 {
		t.Errorf("Get(a) = %v after mutating copy", got)
	}
}

func TestContainer_ConcurrentReaders(t *testing.T) {
	c := NewContainer(Patch{"measuredValue": int16(0)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Get("measuredValue")
				c.Values()
			}
		}()
	}
	for i := 0; i < 200; i++ {
		c.ApplyPatch(Patch{"measuredValue": int16(i)})
	}
	wg.Wait()

	if got, _ := c.Get("measuredValue"); !Equal(got, 199) {
		t.Errorf("measuredValue = %v, want 199", got)
	}
}
