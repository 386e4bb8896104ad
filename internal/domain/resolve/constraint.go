// Package resolve implements the dependency resolver (C7): a greedy
// search over versioned profile requirements with conflict and cycle
// detection, backed by a pluggable SpecificationProvider. It does not
// backtrack: a version once chosen is never revisited.
package resolve

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Satisfies reports whether version satisfies the comma-joined list of
// predicates in constraint, per spec.md §3's grammar: >=, <=, >, <, =, ~>
// over dotted-numeric semver. An empty constraint is always satisfied.
func Satisfies(version, constraint string) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true
	}
	for _, predicate := range strings.Split(constraint, ",") {
		if !satisfiesOne(version, strings.TrimSpace(predicate)) {
			return false
		}
	}
	return true
}

func satisfiesOne(version, predicate string) bool {
	op, raw := splitOperator(predicate)
	v := toSemver(version)
	cv := toSemver(raw)
	if !semver.IsValid(v) || !semver.IsValid(cv) {
		return false
	}

	switch op {
	case ">=":
		return semver.Compare(v, cv) >= 0
	case "<=":
		return semver.Compare(v, cv) <= 0
	case ">":
		return semver.Compare(v, cv) > 0
	case "<":
		return semver.Compare(v, cv) < 0
	case "=":
		return semver.Compare(v, cv) == 0
	case "~>":
		return pessimistic(v, cv)
	default:
		return semver.Compare(v, cv) == 0
	}
}

// pessimistic implements the "~>" operator: ~> 2.1 means >= 2.1.0,
// < 2.2.0; ~> 2.1.3 means >= 2.1.3, < 2.2.0. The constraint is padded to
// MAJOR.MINOR.PATCH and the upper bound increments the minor component,
// so unlike Rubygems, ~> 2.1 does not admit 2.9.
func pessimistic(v, cv string) bool {
	if semver.Compare(v, cv) < 0 {
		return false
	}
	upper := upperBound(cv)
	return semver.Compare(v, upper) < 0
}

func upperBound(cv string) string {
	trimmed := strings.TrimPrefix(cv, "v")
	parts := strings.SplitN(trimmed, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	// Bump the minor component (parts was padded to three above).
	bumpIdx := len(parts) - 2
	n := atoiSafe(parts[bumpIdx]) + 1
	parts[bumpIdx] = fmt.Sprintf("%d", n)
	for i := bumpIdx + 1; i < len(parts); i++ {
		parts[i] = "0"
	}
	return "v" + strings.Join(parts[:3], ".")
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func splitOperator(predicate string) (op, version string) {
	for _, candidate := range []string{">=", "<=", "~>", ">", "<", "="} {
		if strings.HasPrefix(predicate, candidate) {
			return candidate, strings.TrimSpace(strings.TrimPrefix(predicate, candidate))
		}
	}
	return "=", predicate
}

func toSemver(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	// golang.org/x/mod/semver requires a full MAJOR.MINOR.PATCH; pad bare
	// "1.2" constraints the way the manifest grammar allows.
	dots := strings.Count(v, ".")
	for dots < 2 {
		v += ".0"
		dots++
	}
	return v
}

// Compare compares two full semver version strings using the same
// normalization as Satisfies. Used by search_for's ascending ordering.
func Compare(a, b string) int {
	return semver.Compare(toSemver(a), toSemver(b))
}
