package proxy

import (
	"testing"

	"github.com/user/spidermap/internal/entity"
)

func TestGetProxyRotates(t *testing.T) {
	m := NewManager([]string{"http://a:1", " ", "http://b:2"})
	got := []string{m.GetProxy(), m.GetProxy(), m.GetProxy()}
	want := []string{"http://a:1", "http://b:2", "http://a:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
}

func TestGetProxyEmptyPool(t *testing.T) {
	if p := NewManager(nil).GetProxy(); p != "" {
		t.Fatalf("GetProxy() = %q, want direct connection", p)
	}
}

func TestApplyKeepsExplicitSettings(t *testing.T) {
	m := NewManager([]string{"http://pool:1"})

	opts := m.Apply(entity.BrowserOptions{Proxy: "http://mine:1", UserAgent: "ua"})
	if opts.Proxy != "http://mine:1" || opts.UserAgent != "ua" {
		t.Errorf("explicit options overwritten: %+v", opts)
	}

	opts = m.Apply(entity.BrowserOptions{})
	if opts.Proxy != "http://pool:1" {
		t.Errorf("proxy = %q, want pool entry", opts.Proxy)
	}
	if opts.UserAgent == "" {
		t.Error("user agent not filled")
	}
}
