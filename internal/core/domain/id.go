package domain

import (
	"strconv"
	"strings"
)

// NormalizeID canonicalises a record id for comparison. Legacy records
// carry numeric ids which may round-trip through JSON as "7", "7.0" or
// the number 7; all of those must compare equal. Non-numeric ids are
// compared as trimmed strings.
func NormalizeID(id string) string {
	s := strings.TrimSpace(id)
	if s == "" {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// SameID reports whether two record ids identify the same record after
// normalisation.
func SameID(a, b string) bool {
	return NormalizeID(a) == NormalizeID(b)
}

// Record is anything carrying a mergeable identity. Customer and the
// template types implement it.
type Record interface {
	RecordID() string
}

// MergeByID implements the remote-authoritative merge: the result is the
// remote collection, in order, plus any local record whose normalised id
// is absent remotely. It never updates a remote record's fields from a
// local record with the same id, and never deletes a remote record that
// is absent locally. The second return reports whether any local-only
// records were appended (and the combined result therefore needs
// re-uploading).
func MergeByID[T Record](remote, local []T) ([]T, bool) {
	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		seen[NormalizeID(r.RecordID())] = struct{}{}
	}

	merged := make([]T, 0, len(remote)+len(local))
	merged = append(merged, remote...)

	appended := false
	for _, l := range local {
		if _, ok := seen[NormalizeID(l.RecordID())]; ok {
			continue
		}
		merged = append(merged, l)
		appended = true
	}
	return merged, appended
}
