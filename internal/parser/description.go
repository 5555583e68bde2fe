// Package parser tokenizes free-form interface descriptions into remote
// node/interface hints, and applies the interface-name and description
// filters used when enumerating link candidates.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var interfaceIDPattern = regexp.MustCompile(`^[A-Za-z]*(\d+(?:/\d+)+)$`)

// yearWindow is how many years back a 4-digit install-date token is still
// recognized as a year rather than part of a node/interface label.
const yearWindow = 15

// Hint is the parsed (remote_node, remote_interface) pair extracted from
// a description. A nil Hint means parsing failed to find both halves.
type Hint struct {
	Node        string
	InterfaceID string
}

// ParseDescription walks description's underscore-separated tokens from
// the right, lowercased, skipping year tokens, to find an interface-ID
// token followed by a node token. Returns nil if either half is missing.
//
// Example: "DC_link_id_node-b_Te1/1_2020" -> {Node: "node-b", InterfaceID: "1/1"}
func ParseDescription(description string, nodeExcludeList []string) *Hint {
	tokens := strings.Split(strings.ToLower(description), "_")

	var interfaceID string
	var node string
	now := time.Now()

	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if isRecentYear(tok, now) {
			continue
		}
		if interfaceID == "" {
			if m := interfaceIDPattern.FindStringSubmatch(tok); m != nil {
				interfaceID = m[1]
				continue
			}
			continue
		}
		if node == "" {
			if isExcluded(tok, nodeExcludeList) {
				continue
			}
			node = tok
			break
		}
	}

	if interfaceID == "" || node == "" {
		return nil
	}
	return &Hint{Node: node, InterfaceID: interfaceID}
}

func isRecentYear(tok string, now time.Time) bool {
	if len(tok) != 4 {
		return false
	}
	year, err := strconv.Atoi(tok)
	if err != nil {
		return false
	}
	currentYear := now.Year()
	return year <= currentYear && year > currentYear-yearWindow
}

func isExcluded(tok string, excludeList []string) bool {
	for _, ex := range excludeList {
		if tok == strings.ToLower(ex) {
			return true
		}
	}
	return false
}

var subInterfaceSuffix = regexp.MustCompile(`\.\d+$`)

// CheckInterfaceName reports whether an interface label is eligible for
// link enumeration: not a Loopback/Bundle interface and not a numbered
// sub-interface. intCheck=false bypasses the whole filter; remote-link
// enumeration uses it, since bundle members are still relevant
// candidates there.
func CheckInterfaceName(interfaceID string, intCheck bool) bool {
	if !intCheck {
		return true
	}
	if strings.HasPrefix(interfaceID, "Loopback") || strings.HasPrefix(interfaceID, "Bundle") {
		return false
	}
	if subInterfaceSuffix.MatchString(interfaceID) {
		return false
	}
	return true
}

// CheckDescription reports whether a description is eligible for link
// enumeration: non-empty and not starting with a rejected prefix.
func CheckDescription(description string, prefixExcludeList []string) bool {
	if description == "" {
		return false
	}
	for _, prefix := range prefixExcludeList {
		if strings.HasPrefix(description, prefix+"_") || strings.HasPrefix(description, prefix) {
			return false
		}
	}
	return true
}
