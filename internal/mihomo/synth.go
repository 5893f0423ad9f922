package mihomo

import (
	"context"
	"strings"

	"github.com/btnalit/clash-cfg-edit/internal/document"
)

// GlobalGroup is the daemon's reserved system-wide selector. It is never
// user-authored and is dropped from synthesized documents.
const GlobalGroup = "GLOBAL"

// RuntimeView is the live daemon state the synthesizer reads. *Conn
// implements it over the control API.
type RuntimeView interface {
	BaseConfig(ctx context.Context) (map[string]any, error)
	DNS(ctx context.Context) (map[string]any, error)
	Proxies(ctx context.Context) ([]ProxyEntry, error)
	Rules(ctx context.Context) ([]RuleEntry, error)
}

type category int

const (
	categoryNode category = iota
	categoryGroup
	categoryDropped
)

// groupTypes maps the daemon's group meta-types to their declarative names.
var groupTypes = map[string]string{
	"Selector":    "select",
	"URLTest":     "url-test",
	"Fallback":    "fallback",
	"LoadBalance": "load-balance",
	"Relay":       "relay",
}

// builtinTypes are terminal pseudo-proxies the daemon synthesizes itself;
// they never appear in a configuration file.
var builtinTypes = map[string]struct{}{
	"Direct":     {},
	"Reject":     {},
	"RejectDrop": {},
	"Pass":       {},
	"Compatible": {},
}

// classify decides what a /proxies entry becomes in the declarative
// document. Adding a daemon-reported type is a change here only.
func classify(proxyType string) (category, string) {
	if declarative, found := groupTypes[proxyType]; found {
		return categoryGroup, declarative
	}
	if _, found := builtinTypes[proxyType]; found {
		return categoryDropped, ""
	}
	return categoryNode, ""
}

// Synthesize reconstructs one declarative configuration document from the
// daemon's partial runtime views. The base config, proxies and rules
// fetches are required; the DNS fetch is tolerated to fail since not every
// daemon build exposes the endpoint. Synthesis never writes to the daemon.
//
// The control API withholds server addresses and credentials for running
// nodes, so synthesized nodes can come back underspecified; when that
// happens the returned warnings say so.
func Synthesize(ctx context.Context, view RuntimeView) (document.Document, []string, error) {
	base, err := view.BaseConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	dns, dnsErr := view.DNS(ctx)

	entries, err := view.Proxies(ctx)
	if err != nil {
		return nil, nil, err
	}

	ruleEntries, err := view.Rules(ctx)
	if err != nil {
		return nil, nil, err
	}

	var proxies []map[string]any
	var groups []map[string]any
	var underspecified []string

	for _, entry := range entries {
		proxyType, _ := entry.Record["type"].(string)

		switch kind, declarative := classify(proxyType); kind {
		case categoryGroup:
			if entry.Name == GlobalGroup {
				continue
			}
			groups = append(groups, map[string]any{
				"name":    entry.Name,
				"type":    declarative,
				"proxies": memberList(entry.Record["all"]),
			})
		case categoryDropped:
			continue
		default:
			record := make(map[string]any, len(entry.Record)+1)
			for k, v := range entry.Record {
				record[k] = v
			}
			record["name"] = entry.Name

			cleaned := Clean(record, KindProxy)
			if !hasString(cleaned, "name") || !hasString(cleaned, "type") {
				continue
			}
			if cleaned["server"] == nil || cleaned["port"] == nil {
				underspecified = append(underspecified, entry.Name)
			}
			proxies = append(proxies, cleaned)
		}
	}

	rules := make([]string, 0, len(ruleEntries))
	for _, rule := range ruleEntries {
		fields := []string{rule.Type}
		if rule.Payload != "" {
			fields = append(fields, rule.Payload)
		}
		fields = append(fields, rule.Proxy)
		if rule.NoResolve {
			fields = append(fields, "no-resolve")
		}
		rules = append(rules, strings.Join(fields, ","))
	}

	doc := document.Document{}
	for key, value := range Clean(base, KindBase) {
		doc[key] = value
	}
	delete(doc, "tun")

	doc["proxies"] = proxies
	doc["proxy-groups"] = groups
	doc["rules"] = rules

	if tun, ok := base["tun"].(map[string]any); ok {
		if cleaned := Clean(tun, KindTun); len(cleaned) > 0 {
			doc["tun"] = cleaned
		}
	}

	if dnsErr == nil && len(dns) > 0 {
		doc["dns"] = dns
	}

	// The control API only reports a bare sniffing flag; the sniffer block
	// is reconstructed with the daemon defaults, not retrieved.
	if sniffing, ok := base["sniffing"].(bool); ok && sniffing {
		doc["sniffer"] = defaultSniffer()
	}

	var warnings []string
	if len(underspecified) > 0 {
		warnings = append(warnings,
			"the control API withholds server addresses and credentials for running nodes; "+
				"the following proxies are incomplete and need to be filled in before saving: "+
				strings.Join(underspecified, ", "))
	}

	return doc, warnings, nil
}

func defaultSniffer() map[string]any {
	return map[string]any{
		"enable":               true,
		"override-destination": true,
		"sniff": map[string]any{
			"HTTP": map[string]any{
				"ports":                []any{80, "8080-8880"},
				"override-destination": true,
			},
			"TLS": map[string]any{
				"ports": []any{443, 8443},
			},
			"QUIC": map[string]any{
				"ports": []any{443, 8443},
			},
		},
	}
}

func memberList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	members := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			members = append(members, s)
		}
	}
	return members
}

func hasString(record map[string]any, key string) bool {
	s, ok := record[key].(string)
	return ok && s != ""
}
