package catalog

import (
	"regexp"
	"strconv"
)

var probeSuffix = regexp.MustCompile(`^(.*?)(?: \((\d+)\))?$`)

// NextUniqueName returns base when it is free, otherwise the first free
// "stem (n)" for n = 1, 2, ..., where stem is base without any trailing
// " (n)" suffix. It never mutates existing.
func NextUniqueName(base string, existing []string) string {
	taken := toSet(existing)
	if _, ok := taken[base]; !ok {
		return base
	}
	stem := base
	if m := probeSuffix.FindStringSubmatch(base); m != nil && m[2] != "" {
		stem = m[1]
	}
	for n := 1; ; n++ {
		candidate := stem + " (" + strconv.Itoa(n) + ")"
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// NextUniqueInt returns the smallest free non-negative integer key not below
// base, written in decimal. A base that is not an integer probes from zero.
func NextUniqueInt(base string, existing []string) string {
	taken := toSet(existing)
	n, err := strconv.Atoi(base)
	if err != nil || n < 0 {
		n = 0
	}
	for ; ; n++ {
		candidate := strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
