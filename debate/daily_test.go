package debate

import (
	"testing"
	"time"
)

func TestDailySchedulerUntilNext(t *testing.T) {
	tests := []struct {
		name   string
		now    string // UTC
		hour   int
		minute int
		offset int // minutes
		want   time.Duration
	}{
		{
			name: "before fire time",
			now:  "2026-08-25T00:30:00Z", // 08:30 at UTC+8
			hour: 9, offset: 480,
			want: 30 * time.Minute,
		},
		{
			name: "exactly at fire time waits a day",
			now:  "2026-08-25T01:00:00Z", // 09:00 at UTC+8
			hour: 9, offset: 480,
			want: 24 * time.Hour,
		},
		{
			name: "after fire time waits for tomorrow",
			now:  "2026-08-25T02:00:00Z", // 10:00 at UTC+8
			hour: 9, offset: 480,
			want: 23 * time.Hour,
		},
		{
			name: "no offset",
			now:  "2026-08-25T08:15:00Z",
			hour: 9, minute: 30,
			want: 75 * time.Minute,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			now, err := time.Parse(time.RFC3339, tc.now)
			if err != nil {
				t.Fatalf("bad test time: %v", err)
			}

			d := NewDailyScheduler(nil, tc.hour, tc.minute, tc.offset, testLogger())
			d.now = func() time.Time { return now }

			if got := d.untilNext(); got != tc.want {
				t.Fatalf("untilNext() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDailySchedulerEnableDisable(t *testing.T) {
	d := NewDailyScheduler(nil, 9, 0, 480, testLogger())

	if d.Enabled() {
		t.Fatalf("scheduler should start disabled")
	}
	if d.Disable() {
		t.Fatalf("disabling an idle scheduler should report false")
	}

	d.Enable(42)
	if !d.Enabled() {
		t.Fatalf("scheduler should be enabled")
	}

	// Enable again restarts the timer without leaking the old one.
	d.Enable(42)
	if !d.Enabled() {
		t.Fatalf("re-enable should keep the scheduler running")
	}

	if !d.Disable() {
		t.Fatalf("disabling a running scheduler should report true")
	}
	if d.Enabled() {
		t.Fatalf("scheduler should be disabled")
	}
}
