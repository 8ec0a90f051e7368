package id

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxChildren is how many child ids a single parent can hand out.
const MaxChildren = 99

// ErrRangeExhausted is returned when all child slots of a parent are taken.
var ErrRangeExhausted = errors.New("child id range exhausted")

// ChildRange returns the inclusive id range reserved for children of parentID.
// 1100 -> 110001..110099
func ChildRange(parentID int64) (lo, hi int64) {
	return parentID*100 + 1, parentID*100 + MaxChildren
}

// NextChildID returns the next free child id given the highest id already
// allocated in the parent's range (0 when none).
func NextChildID(parentID, maxExisting int64) (int64, error) {
	lo, hi := ChildRange(parentID)
	next := lo
	if maxExisting >= lo {
		next = maxExisting + 1
	}
	if next > hi {
		return 0, fmt.Errorf("%w: parent %d already has %d children", ErrRangeExhausted, parentID, MaxChildren)
	}
	return next, nil
}

// ParentOf returns the parent id implied by a child id, or 0 for ids that
// cannot be children (fewer than three digits).
func ParentOf(childID int64) int64 {
	if childID < 100 || childID%100 == 0 {
		return 0
	}
	return childID / 100
}

// FormatEntryRef returns a human-readable reference like "JE-2025-01-000042".
func FormatEntryRef(date time.Time, entryID int64) string {
	return fmt.Sprintf("JE-%04d-%02d-%06d", date.Year(), int(date.Month()), entryID)
}

// ParseEntryRef parses "JE-2025-01-000042" (or a bare number) into an entry id.
func ParseEntryRef(ref string) (int64, error) {
	base := strings.TrimPrefix(strings.TrimSpace(ref), "JE-")
	if i := strings.LastIndex(base, "-"); i >= 0 {
		base = base[i+1:]
	}
	n, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entry reference %q: %w", ref, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid entry reference %q", ref)
	}
	return n, nil
}
