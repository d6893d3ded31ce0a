// Package rules provides the declarative rule vocabulary for loadstone.
//
// This package contains rule types and rule construction only. All other
// internal packages import rules; rules imports nothing internal. This
// ensures the rule vocabulary remains the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - Rule kinds form a closed tag set; kind-specific field requirements
//     are enforced at construction, never at resolution time
//   - Rules are immutable values once constructed
//   - One malformed record yields one SyntaxError, never a batch failure
//   - Canonical JSON and digests live here so every layer hashes rule
//     content the same way
package rules
