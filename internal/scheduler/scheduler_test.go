package scheduler

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScheduleInterval(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantError bool
	}{
		{"empty interval", "", false},

		{"valid 1m", "1m", false},
		{"valid 5m", "5m", false},
		{"valid 30m", "30m", false},
		{"valid 1h", "1h", false},
		{"valid 6h", "6h", false},
		{"valid 24h", "24h", false},
		{"valid 1s", "1s", false},
		{"valid 30s", "30s", false},
		{"valid 60s is one minute", "60s", false},

		{"invalid 7m", "7m", true},
		{"invalid 45m", "45m", true},
		{"invalid 5h", "5h", true},
		{"invalid 7s", "7s", true},
		{"invalid 90s", "90s", true},
		{"invalid 500ms", "500ms", true},
		{"negative", "-5m", true},

		{"cron every 5 min", "*/5 * * * *", false},
		{"cron complex", "0 9,17 * * 1-5", false},
		{"cron 6 fields", "*/30 * * * * *", false},

		{"cron too few fields", "*/5 * * *", true},
		{"cron too many fields", "*/5 * * * * * *", true},
		{"non-duration non-cron", "invalid", true},
		{"mixed units", "1h30m", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScheduleInterval(tt.interval)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationToCron(t *testing.T) {
	tests := []struct {
		duration string
		want     string
	}{
		{"5m", "*/5 * * * *"},
		{"1m", "*/1 * * * *"},
		{"20m", "*/20 * * * *"},
		{"1h", "0 */1 * * *"},
		{"8h", "0 */8 * * *"},
		{"24h", "0 */24 * * *"},
		{"30s", "*/30 * * * * *"},
		{"1s", "*/1 * * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			got, err := durationToCron(tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCronExpression(t *testing.T) {
	assert.True(t, IsCronExpression("*/5 * * * *"))
	assert.True(t, IsCronExpression("*/30 * * * * *"))
	assert.False(t, IsCronExpression("5m"))
	assert.False(t, IsCronExpression("not a cron"))
}

func TestDescribeSchedule(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name     string
		interval string
		timezone *time.Location
		want     string
	}{
		{"5m UTC", "5m", time.UTC, "every 5m0s (aligned to clock, cron: */5 * * * *, UTC)"},
		{"30s UTC", "30s", time.UTC, "every 30s (aligned to clock, cron: */30 * * * * *, UTC)"},
		{"1h NYC", "1h", ny, "every 1h0m0s (aligned to clock, cron: 0 */1 * * *, America/New_York)"},
		{"cron UTC", "0 9,17 * * 1-5", time.UTC, "cron: 0 9,17 * * 1-5 (UTC)"},
		{"cron NYC", "*/5 * * * *", ny, "cron: */5 * * * * (America/New_York)"},
		{"non-aligned", "7m", time.UTC, "duration: 7m (non-aligned)"},
		{"garbage", "soon", time.UTC, "invalid: soon"},
		{"nil timezone", "5m", nil, "every 5m0s (aligned to clock, cron: */5 * * * *, UTC)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeSchedule(tt.interval, tt.timezone))
		})
	}
}

func TestExpectedInterval(t *testing.T) {
	assert.Equal(t, 30*time.Second, ExpectedInterval("30s"))
	assert.Equal(t, 5*time.Minute, ExpectedInterval("0 9 * * *"))
}

type counterLog struct {
	mu   sync.Mutex
	seen []uint64
}

func (c *counterLog) Refresh(counter uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, counter)
}

func (c *counterLog) values() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.seen...)
}

func TestSignalIncrements(t *testing.T) {
	target := &counterLog{}
	signal := NewSignal(target, 4)

	assert.Equal(t, uint64(5), signal.Fire())
	assert.Equal(t, uint64(6), signal.Fire())
	assert.Equal(t, uint64(6), signal.Counter())
	assert.Equal(t, []uint64{5, 6}, target.values())
}

func TestSignalConcurrentFiresStayOrdered(t *testing.T) {
	target := &counterLog{}
	signal := NewSignal(target, 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			signal.Fire()
		}()
	}
	wg.Wait()

	seen := target.values()
	require.Len(t, seen, 20)
	for i, v := range seen {
		assert.Equal(t, uint64(i+1), v)
	}
}

func TestNewRejectsBadInterval(t *testing.T) {
	_, err := New(Config{Interval: "7m"}, NewSignal(&counterLog{}, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid interval")
}

func TestSchedulerRunsImmediately(t *testing.T) {
	target := &counterLog{}
	s, err := New(Config{
		Interval:       "1h",
		RunImmediately: true,
		Logger:         slog.Default(),
	}, NewSignal(target, 0))
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool {
		return len(target.values()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	next, err := s.NextRun()
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
}

func TestGocronLogger(t *testing.T) {
	l := gocronLogger{slog.Default()}
	l.Debug("test debug", "key", "value")
	l.Info("test info", "key", "value")
	l.Warn("test warn", "key", "value")
	l.Error("test error", "key", "value")
}
