package mihomo

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ProxyEntry is one record of the /proxies map. The daemon keys records by
// name; the declarative format carries the name inside the record, so both
// are kept here. Entries preserve the order the daemon reported them in.
type ProxyEntry struct {
	Name   string
	Record map[string]any
}

// RuleEntry is one structured record of the /rules response.
type RuleEntry struct {
	Type      string `json:"type"`
	Payload   string `json:"payload"`
	Proxy     string `json:"proxy"`
	NoResolve bool   `json:"noResolve"`
}

type rulesResponse struct {
	Rules []RuleEntry `json:"rules"`
}

// decodeProxies walks the /proxies JSON with a token decoder instead of
// unmarshalling into a map, so the daemon's reporting order survives.
func decodeProxies(data []byte) ([]ProxyEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, errors.Wrap(err, "mihomo: unexpected proxies payload")
	}

	var entries []ProxyEntry
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, errors.New("mihomo: unexpected proxies payload")
		}

		if key != "proxies" {
			var skipped json.RawMessage
			if err = dec.Decode(&skipped); err != nil {
				return nil, errors.WithStack(err)
			}
			continue
		}

		if err = expectDelim(dec, '{'); err != nil {
			return nil, errors.Wrap(err, "mihomo: unexpected proxies payload")
		}
		for dec.More() {
			nameToken, err := dec.Token()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			name, ok := nameToken.(string)
			if !ok {
				return nil, errors.New("mihomo: unexpected proxies payload")
			}

			var record map[string]any
			if err = dec.Decode(&record); err != nil {
				return nil, errors.WithStack(err)
			}
			entries = append(entries, ProxyEntry{Name: name, Record: record})
		}
		if _, err = dec.Token(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return entries, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != want {
		return errors.Newf("expected %q, got %v", want, token)
	}
	return nil
}
