package cleanup

import (
	"testing"
	"time"
)

func TestNextBackoff(t *testing.T) {
	var got []time.Duration
	d := time.Duration(0)
	for i := 0; i < 7; i++ {
		d = nextBackoff(d)
		got = append(got, d)
	}

	want := []time.Duration{
		500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 10 * time.Second, 10 * time.Second,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIsConsumerGroupExistsError(t *testing.T) {
	if !isConsumerGroupExistsError(errString("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP not recognised")
	}
	if isConsumerGroupExistsError(errString("ERR no such key")) || isConsumerGroupExistsError(nil) {
		t.Error("unrelated error treated as BUSYGROUP")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
