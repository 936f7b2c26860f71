package resolver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeDNS struct {
	ptr   map[string][]string
	a     map[string][]net.IPAddr
	delay time.Duration
}

func (f *fakeDNS) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if names, ok := f.ptr[addr]; ok {
		return names, nil
	}
	return nil, errors.New("no PTR")
}

func (f *fakeDNS) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if ips, ok := f.a[host]; ok {
		return ips, nil
	}
	return nil, errors.New("no A")
}

func ipAddr(s string) net.IPAddr { return net.IPAddr{IP: net.ParseIP(s)} }

func TestReverse(t *testing.T) {
	dns := &fakeDNS{
		ptr: map[string][]string{
			"192.0.2.1":   {"good.example.org."},
			"192.0.2.2":   {"liar.example.org."},
			"192.0.2.3":   {"", "nope.example.org.", "second.example.org."},
			"2001:db8::1": {"six.example.org."},
		},
		a: map[string][]net.IPAddr{
			"good.example.org":   {ipAddr("192.0.2.1")},
			"liar.example.org":   {ipAddr("198.51.100.9")},
			"second.example.org": {ipAddr("198.51.100.1"), ipAddr("192.0.2.3")},
			"six.example.org":    {ipAddr("2001:db8::1")},
		},
	}
	r := &Resolver{Lookup: dns, Timeout: time.Second}

	tests := []struct {
		ip     string
		want   string
		wantOK bool
	}{
		{"192.0.2.1", "good.example.org", true},
		{"192.0.2.2", "", false},
		{"192.0.2.3", "second.example.org", true},
		{"2001:db8::1", "six.example.org", true},
		{"192.0.2.99", "", false},
		{"not-an-ip", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			name, ok := r.Reverse(context.Background(), tt.ip)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestReverse_Timeout(t *testing.T) {
	dns := &fakeDNS{delay: time.Second}
	r := &Resolver{Lookup: dns, Timeout: 20 * time.Millisecond}

	start := time.Now()
	_, ok := r.Reverse(context.Background(), "192.0.2.1")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestNew_Defaults(t *testing.T) {
	r := New()
	assert.Equal(t, net.DefaultResolver, r.Lookup)
	assert.Equal(t, 5*time.Second, r.Timeout)
}
