package timeouts

import (
	"context"
	"testing"
	"time"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})

	got := Current()
	if got.Short != 7*time.Second {
		t.Errorf("Short = %v, want 7s", got.Short)
	}
	if got.Medium != DefaultMedium {
		t.Errorf("Medium = %v, want default %v", got.Medium, DefaultMedium)
	}
	if got.Ping != DefaultPing {
		t.Errorf("Ping = %v, want default %v", got.Ping, DefaultPing)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Long: time.Minute})
	Reset()
	if Long() != DefaultLong {
		t.Errorf("Long = %v after Reset, want %v", Long(), DefaultLong)
	}
}

func TestWithTimeout_NilLogger(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, nil, "test")
	<-ctx.Done()
	cancel() // must not panic with a nil logger
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}
