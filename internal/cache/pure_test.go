package cache

import (
	"testing"
	"time"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	if hashIP("192.168.1.100") != hashIP("192.168.1.100") {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 localhost", "::1"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if hash := hashIP(tt.ip); len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	if hashIP("10.0.0.1") == hashIP("10.0.0.2") {
		t.Error("Different IPs should produce different hashes")
	}
}

func TestMembershipKey(t *testing.T) {
	t.Parallel()

	if got := membershipKey("alice@x.com"); got != "member:alice@x.com" {
		t.Errorf("membershipKey() = %q", got)
	}
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	o, err := parseOptions("redis://:secret@localhost:6380/3", WithPoolSize(8), WithClientName("sink-migrate"))
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	if o.Addr != "localhost:6380" || o.DB != 3 || o.Password != "secret" {
		t.Errorf("parsed addr=%q db=%d password=%q", o.Addr, o.DB, o.Password)
	}
	if o.PoolSize != 8 {
		t.Errorf("PoolSize = %d, want 8", o.PoolSize)
	}
	if o.ClientName != "sink-migrate" {
		t.Errorf("ClientName = %q", o.ClientName)
	}
	if o.MinIdleConns != 2 {
		t.Errorf("MinIdleConns = %d, want default 2", o.MinIdleConns)
	}

	if _, err := parseOptions("localhost:6379"); err == nil {
		t.Error("expected error for URL without scheme")
	}
}

func TestParseBucketResult(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	got := parseBucketResult(now, []int64{0, 1200, 0, 12000})
	if got.Allowed {
		t.Error("Allowed = true, want false")
	}
	if got.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want rounded up to 2s", got.RetryAfter)
	}
	if !got.ResetAt.Equal(now.Add(12 * time.Second)) {
		t.Errorf("ResetAt = %v", got.ResetAt)
	}

	got = parseBucketResult(now, []int64{1, 0, 4, 200})
	if !got.Allowed || got.Remaining != 4 || got.RetryAfter != 0 {
		t.Errorf("allowed result = %+v", got)
	}
}

func TestSignInBucketTTL(t *testing.T) {
	t.Parallel()

	// Five tokens at five per minute refill in one minute.
	if got := signInBucket.ttl(); got != 61*time.Second {
		t.Errorf("ttl = %v, want 61s", got)
	}
}
