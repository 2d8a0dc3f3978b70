package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Num int    // 1-based position on the selected page; 0 if ID is set
	ID  string // task ID given as #<id>
}

func (r TaskRef) String() string {
	if r.ID != "" {
		return "#" + r.ID
	}
	return strconv.Itoa(r.Num)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. If first arg is all digits → position on the selected page
// 2. If first arg is # followed by a non-empty ID → task ID
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := strings.TrimSpace(args[0])

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("task number out of range: %s", firstArg)
		}
		return TaskRef{Num: num}, nil
	}

	if id, ok := strings.CutPrefix(firstArg, "#"); ok && id != "" && !strings.ContainsFunc(id, unicode.IsSpace) {
		return TaskRef{ID: id}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
