package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix enables future
// algorithm migration without colliding with old digests.
const (
	DomainRuleset = "loadstone/ruleset/v1"
	DomainRule    = "loadstone/rule/v1"
	DomainReport  = "loadstone/report/v1"
	DomainMod     = "loadstone/mod/v1"
)

// CanonicalDigest computes the domain-separated SHA-256 digest of a value's
// canonical JSON form. Format: SHA256(domain + 0x00 + canonicalJSON), hex
// encoded. The null byte prevents domain/data boundary ambiguity.
func CanonicalDigest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("canonical digest: %w", err)
	}
	return HashWithDomain(domain, canonical), nil
}

// HashWithDomain computes SHA-256 over domain + 0x00 + data.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content digest of a single rule. Rules with equal
// canonical form digest identically, which gives stored rules a natural
// primary key.
func (r Rule) Digest() (string, error) {
	return CanonicalDigest(DomainRule, r.canonicalMap())
}

// RulesetDigest computes a content digest over a rule sequence. Two rule
// sets digest equal exactly when they contain the same rules in the same
// order, so a stored load order can be traced to the rules that produced it.
func RulesetDigest(rs []Rule) (string, error) {
	list := make([]any, len(rs))
	for i, r := range rs {
		list[i] = r.canonicalMap()
	}
	return CanonicalDigest(DomainRuleset, list)
}

// canonicalMap renders the rule as plain values for MarshalCanonical.
// Zero-valued optional fields are omitted so formatting variants of the
// same rule digest identically.
func (r Rule) canonicalMap() map[string]any {
	m := map[string]any{
		"kind":    string(r.Kind),
		"subject": r.Subject,
	}
	if r.Object != "" {
		m["object"] = r.Object
	}
	if r.Severity != "" {
		m["severity"] = string(r.Severity)
	}
	if r.Priority != 0 {
		m["priority"] = r.Priority
	}
	if r.Section != "" {
		m["section"] = r.Section
	}
	if r.Reference != "" {
		m["reference"] = r.Reference
	}
	if len(r.Predicates) > 0 {
		preds := make([]any, len(r.Predicates))
		for i, p := range r.Predicates {
			preds[i] = map[string]any{
				"type":  string(p.Type),
				"value": p.Value,
			}
		}
		m["predicates"] = preds
	}
	return m
}
