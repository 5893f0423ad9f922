package mihomo

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/btnalit/clash-cfg-edit/internal/document"
)

type fakeView struct {
	base    map[string]any
	baseErr error

	dns    map[string]any
	dnsErr error

	proxies    []ProxyEntry
	proxiesErr error

	rules    []RuleEntry
	rulesErr error
}

func (f *fakeView) BaseConfig(context.Context) (map[string]any, error) {
	return f.base, f.baseErr
}

func (f *fakeView) DNS(context.Context) (map[string]any, error) {
	return f.dns, f.dnsErr
}

func (f *fakeView) Proxies(context.Context) ([]ProxyEntry, error) {
	return f.proxies, f.proxiesErr
}

func (f *fakeView) Rules(context.Context) ([]RuleEntry, error) {
	return f.rules, f.rulesErr
}

func runtimeView() *fakeView {
	return &fakeView{
		base: map[string]any{
			"mode":       "rule",
			"port":       7890,
			"mixed-port": 7893,
			"sniffing":   false,
			"tun": map[string]any{
				"enable": true,
				"stack":  "gvisor",
				"device": "utun0",
			},
		},
		dns: map[string]any{
			"enable":     true,
			"nameserver": []any{"8.8.8.8"},
		},
		proxies: []ProxyEntry{
			{Name: "DIRECT", Record: map[string]any{"type": "Direct"}},
			{Name: "REJECT", Record: map[string]any{"type": "Reject"}},
			{Name: "node-a", Record: map[string]any{
				"type":   "Shadowsocks",
				"server": "a.example.com",
				"port":   float64(8388),
				"alive":  true,
			}},
			{Name: "node-b", Record: map[string]any{
				"type":   "Vmess",
				"server": "b.example.com",
				"port":   float64(443),
				"xudp":   true,
			}},
			{Name: "GLOBAL", Record: map[string]any{
				"type": "Selector",
				"all":  []any{"node-a", "node-b"},
			}},
			{Name: "Auto", Record: map[string]any{
				"type": "URLTest",
				"all":  []any{"node-b", "node-a"},
				"now":  "node-a",
			}},
		},
		rules: []RuleEntry{
			{Type: "DOMAIN-SUFFIX", Payload: "example.com", Proxy: "Auto"},
			{Type: "MATCH", Proxy: "DIRECT"},
		},
	}
}

func TestSynthesizeClassification(t *testing.T) {
	doc, _, err := Synthesize(context.Background(), runtimeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	proxies, ok := doc["proxies"].([]map[string]any)
	if !ok {
		t.Fatalf("proxies missing or wrong shape: %#v", doc["proxies"])
	}
	if len(proxies) != 2 {
		t.Fatalf("proxies = %d entries, want 2 (built-ins dropped)", len(proxies))
	}
	if proxies[0]["name"] != "node-a" || proxies[1]["name"] != "node-b" {
		t.Fatalf("node order not preserved: %v, %v", proxies[0]["name"], proxies[1]["name"])
	}
	if proxies[0]["type"] != "shadowsocks" {
		t.Errorf("node type not lowercased: %v", proxies[0]["type"])
	}
	if _, found := proxies[0]["alive"]; found {
		t.Errorf("runtime field survived sanitization")
	}

	groups, ok := doc["proxy-groups"].([]map[string]any)
	if !ok {
		t.Fatalf("proxy-groups missing or wrong shape: %#v", doc["proxy-groups"])
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d entries, want 1 (GLOBAL dropped)", len(groups))
	}
	if groups[0]["name"] != "Auto" || groups[0]["type"] != "url-test" {
		t.Fatalf("group = %v/%v, want Auto/url-test", groups[0]["name"], groups[0]["type"])
	}
	if want := []string{"node-b", "node-a"}; !reflect.DeepEqual(groups[0]["proxies"], want) {
		t.Fatalf("group members = %v, want %v (verbatim order)", groups[0]["proxies"], want)
	}
}

func TestSynthesizeGroupTypeTranslation(t *testing.T) {
	tests := []struct {
		runtime     string
		declarative string
	}{
		{"Selector", "select"},
		{"URLTest", "url-test"},
		{"Fallback", "fallback"},
		{"LoadBalance", "load-balance"},
		{"Relay", "relay"},
	}

	for _, tc := range tests {
		view := runtimeView()
		view.proxies = []ProxyEntry{
			{Name: "g", Record: map[string]any{"type": tc.runtime, "all": []any{"x"}}},
		}

		doc, _, err := Synthesize(context.Background(), view)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.runtime, err)
		}

		groups := doc["proxy-groups"].([]map[string]any)
		if len(groups) != 1 || groups[0]["type"] != tc.declarative {
			t.Errorf("%s: got %#v, want type %q", tc.runtime, groups, tc.declarative)
		}
	}
}

func TestSynthesizeDropsBuiltins(t *testing.T) {
	view := runtimeView()
	view.proxies = []ProxyEntry{
		{Name: "DIRECT", Record: map[string]any{"type": "Direct"}},
		{Name: "REJECT", Record: map[string]any{"type": "Reject"}},
		{Name: "REJECT-DROP", Record: map[string]any{"type": "RejectDrop"}},
		{Name: "PASS", Record: map[string]any{"type": "Pass"}},
		{Name: "COMPATIBLE", Record: map[string]any{"type": "Compatible"}},
	}

	doc, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := len(doc["proxies"].([]map[string]any)); n != 0 {
		t.Errorf("proxies = %d entries, want 0", n)
	}
	if n := len(doc["proxy-groups"].([]map[string]any)); n != 0 {
		t.Errorf("proxy-groups = %d entries, want 0", n)
	}
}

func TestSynthesizeRuleStrings(t *testing.T) {
	view := runtimeView()
	view.rules = []RuleEntry{
		{Type: "DOMAIN-SUFFIX", Payload: "example.com", Proxy: "Auto"},
		{Type: "MATCH", Proxy: "DIRECT"},
		{Type: "IP-CIDR", Payload: "10.0.0.0/8", Proxy: "DIRECT", NoResolve: true},
	}

	doc, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"DOMAIN-SUFFIX,example.com,Auto",
		"MATCH,DIRECT",
		"IP-CIDR,10.0.0.0/8,DIRECT,no-resolve",
	}
	if got := doc["rules"].([]string); !reflect.DeepEqual(got, want) {
		t.Fatalf("rules = %v, want %v", got, want)
	}
}

func TestSynthesizeBaseAndTunSanitized(t *testing.T) {
	view := runtimeView()
	view.base["authentication"] = []any{"secret"}

	doc, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found := doc["authentication"]; found {
		t.Errorf("base runtime field survived")
	}
	if doc["mode"] != "rule" || doc["port"] != 7890 {
		t.Errorf("base fields lost: mode=%v port=%v", doc["mode"], doc["port"])
	}

	tun, ok := doc["tun"].(map[string]any)
	if !ok {
		t.Fatalf("tun missing: %#v", doc["tun"])
	}
	if _, found := tun["device"]; found {
		t.Errorf("tun runtime field survived")
	}
}

func TestSynthesizeOmitsEmptyTun(t *testing.T) {
	view := runtimeView()
	view.base["tun"] = map[string]any{
		"device":          "utun0",
		"file-descriptor": 3,
	}

	doc, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found := doc["tun"]; found {
		t.Fatalf("tun should be omitted when nothing survives sanitization")
	}
}

func TestSynthesizeToleratesDNSFailure(t *testing.T) {
	view := runtimeView()
	view.dns = nil
	view.dnsErr = errors.New("404 not found")

	doc, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("dns failure must be tolerated, got: %v", err)
	}
	if _, found := doc["dns"]; found {
		t.Fatalf("dns section should be absent")
	}
}

func TestSynthesizeFatalFetches(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name   string
		mutate func(*fakeView)
	}{
		{"base config", func(v *fakeView) { v.baseErr = boom }},
		{"proxies", func(v *fakeView) { v.proxiesErr = boom }},
		{"rules", func(v *fakeView) { v.rulesErr = boom }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			view := runtimeView()
			tc.mutate(view)

			if _, _, err := Synthesize(context.Background(), view); !errors.Is(err, boom) {
				t.Fatalf("%s fetch failure must abort synthesis, got: %v", tc.name, err)
			}
		})
	}
}

func TestSynthesizeSnifferReconstruction(t *testing.T) {
	view := runtimeView()
	view.base["sniffing"] = true

	doc, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sniffer, ok := doc["sniffer"].(map[string]any)
	if !ok {
		t.Fatalf("sniffer block not synthesized")
	}
	if sniffer["enable"] != true || sniffer["override-destination"] != true {
		t.Errorf("sniffer defaults wrong: %#v", sniffer)
	}
	sniff := sniffer["sniff"].(map[string]any)
	for _, proto := range []string{"HTTP", "TLS", "QUIC"} {
		if _, found := sniff[proto]; !found {
			t.Errorf("sniffer missing %s port set", proto)
		}
	}

	// the sniffing flag itself is a runtime field and never persists
	if _, found := doc["sniffing"]; found {
		t.Errorf("sniffing flag survived sanitization")
	}
}

func TestSynthesizeUnderspecifiedWarning(t *testing.T) {
	view := runtimeView()
	view.proxies = append(view.proxies, ProxyEntry{
		Name:   "running-node",
		Record: map[string]any{"type": "Vless"},
	})

	_, warnings, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "running-node") {
		t.Fatalf("expected underspecified-node warning naming the node, got %v", warnings)
	}
}

func TestSynthesizeNoWarningWhenComplete(t *testing.T) {
	_, warnings, err := Synthesize(context.Background(), runtimeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestSynthesizeIdempotent(t *testing.T) {
	view := runtimeView()

	first, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := Synthesize(context.Background(), view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("synthesis is not idempotent:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestSynthesizeRoundTripValidates(t *testing.T) {
	doc, _, err := Synthesize(context.Background(), runtimeView())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := document.Validate(doc)
	if !result.Valid {
		t.Fatalf("synthesized document must validate, errors: %v", result.Errors)
	}
}
