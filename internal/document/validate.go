package document

import (
	"fmt"
	"strings"
)

// Result is a content judgment, not an error: validation never fails,
// it reports. Errors block saving or applying the document, warnings
// are advisory only.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

var validModes = []string{"rule", "global", "direct"}

var validGroupTypes = []string{"select", "url-test", "fallback", "load-balance", "relay"}

// Validate walks the document and reports structural problems. It is pure:
// no I/O, no mutation of the input.
func Validate(doc Document) Result {
	errs := []string{}
	warnings := []string{}

	if mode, found := doc["mode"]; !found {
		warnings = append(warnings, "mode is not set; the daemon default applies")
	} else if s, ok := mode.(string); !ok || !contains(validModes, s) {
		errs = append(errs, "mode must be one of rule, global or direct")
	}

	for _, field := range []string{"port", "socks-port", "mixed-port"} {
		if value, found := doc[field]; found {
			if port, ok := asInt(value); !ok || port < 1 || port > 65535 {
				errs = append(errs, fmt.Sprintf("%s must be between 1 and 65535", field))
			}
		}
	}

	errs, warnings = checkProxies(doc, errs, warnings)
	errs, warnings = checkGroups(doc, errs, warnings)
	errs, warnings = checkRules(doc, errs, warnings)

	if dns, ok := asMap(doc["dns"]); ok {
		if enabled, _ := dns["enable"].(bool); enabled {
			if nameservers, ok := asList(dns["nameserver"]); !ok || len(nameservers) == 0 {
				warnings = append(warnings, "dns is enabled but no nameserver is configured")
			}
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}

func checkProxies(doc Document, errs, warnings []string) ([]string, []string) {
	value, found := doc["proxies"]
	if !found {
		return errs, append(warnings, "no proxies configured")
	}

	proxies, ok := asList(value)
	if !ok {
		return append(errs, "proxies must be a list"), warnings
	}
	if len(proxies) == 0 {
		return errs, append(warnings, "no proxies configured")
	}

	for i, item := range proxies {
		proxy, ok := asMap(item)
		if !ok {
			errs = append(errs, fmt.Sprintf("proxy #%d: must be a mapping", i+1))
			continue
		}

		name, _ := proxy["name"].(string)
		label := name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Sprintf("proxy %s: missing name", label))
		}
		if s, _ := proxy["type"].(string); s == "" {
			errs = append(errs, fmt.Sprintf("proxy %q: missing type", label))
		}
		if s, _ := proxy["server"].(string); s == "" {
			errs = append(errs, fmt.Sprintf("proxy %q: missing server", label))
		}
		if port, ok := asInt(proxy["port"]); !ok {
			errs = append(errs, fmt.Sprintf("proxy %q: missing port", label))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("proxy %q: port must be between 1 and 65535", label))
		}
	}

	return errs, warnings
}

func checkGroups(doc Document, errs, warnings []string) ([]string, []string) {
	value, found := doc["proxy-groups"]
	if !found {
		return errs, append(warnings, "no proxy-groups configured")
	}

	groups, ok := asList(value)
	if !ok {
		return append(errs, "proxy-groups must be a list"), warnings
	}
	if len(groups) == 0 {
		return errs, append(warnings, "no proxy-groups configured")
	}

	for i, item := range groups {
		group, ok := asMap(item)
		if !ok {
			errs = append(errs, fmt.Sprintf("proxy-group #%d: must be a mapping", i+1))
			continue
		}

		name, _ := group["name"].(string)
		label := name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Sprintf("proxy-group %s: missing name", label))
		}
		if s, _ := group["type"].(string); s == "" {
			errs = append(errs, fmt.Sprintf("proxy-group %q: missing type", label))
		} else if !contains(validGroupTypes, s) {
			errs = append(errs, fmt.Sprintf(
				"proxy-group %q: type must be one of %s", label, strings.Join(validGroupTypes, ", ")))
		}
		if members, ok := asList(group["proxies"]); !ok || len(members) == 0 {
			errs = append(errs, fmt.Sprintf("proxy-group %q: must reference at least one proxy", label))
		}
	}

	return errs, warnings
}

func checkRules(doc Document, errs, warnings []string) ([]string, []string) {
	value, found := doc["rules"]
	if !found {
		return errs, append(warnings, "no rules configured; all traffic uses the default policy")
	}

	rules, ok := asList(value)
	if !ok {
		return append(errs, "rules must be a list"), warnings
	}
	if len(rules) == 0 {
		return errs, append(warnings, "rules is empty")
	}

	for i, item := range rules {
		rule, ok := item.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("rule #%d: must be a string", i+1))
			continue
		}
		if len(strings.Split(rule, ",")) < 2 {
			errs = append(errs, fmt.Sprintf("rule #%d %q: malformed", i+1, rule))
		}
	}

	return errs, warnings
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// asInt accepts the numeric types YAML and JSON decoding produce.
func asInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	}
	return 0, false
}

func asMap(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}

func asList(value any) ([]any, bool) {
	switch list := value.(type) {
	case []any:
		return list, true
	case []string:
		items := make([]any, len(list))
		for i, v := range list {
			items[i] = v
		}
		return items, true
	case []map[string]any:
		items := make([]any, len(list))
		for i, v := range list {
			items[i] = v
		}
		return items, true
	}
	return nil, false
}
