package mihomo

import "strings"

// RecordKind selects which denylist Clean applies. The lists encode which
// fields are daemon-runtime artifacts that must never be written back into
// a saveable document.
type RecordKind int

const (
	KindProxy RecordKind = iota
	KindBase
	KindTun
)

var denylists = map[RecordKind]map[string]struct{}{
	KindProxy: set(
		"alive", "extra", "history", "id", "interface", "mptcp",
		"provider-name", "routing-mark", "smux", "tfo", "uot", "xudp",
		// proxy group runtime fields
		"now", "all",
	),
	KindBase: set(
		"tuic-server", "ss-config", "vmess-config", "authentication",
		"skip-auth-prefixes", "lan-allowed-ips", "lan-disallowed-ips",
		"inbound-tfo", "inbound-mptcp", "geox-url", "geo-auto-update",
		"geo-update-interval", "geosite-matcher", "find-process-mode",
		"sniffing", "global-ua", "etag-support", "keep-alive-idle",
		"keep-alive-interval", "disable-keep-alive",
	),
	KindTun: set(
		"device", "gso-max-size", "inet4-address", "inet6-address",
		"file-descriptor", "recvmsgx",
	),
}

func set(fields ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// Clean returns a copy of the record without denylisted fields and without
// empty values. Unknown fields pass through unchanged. For proxy records
// the type is lowercased: the daemon reports node types capitalized, the
// declarative format wants them lowercase.
func Clean(record map[string]any, kind RecordKind) map[string]any {
	denied := denylists[kind]

	cleaned := make(map[string]any, len(record))
	for key, value := range record {
		if _, found := denied[key]; found {
			continue
		}
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}

		if kind == KindProxy && key == "type" {
			if s, ok := value.(string); ok {
				cleaned[key] = strings.ToLower(s)
				continue
			}
		}
		cleaned[key] = value
	}

	return cleaned
}
