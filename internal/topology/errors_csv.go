package topology

import (
	"encoding/csv"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/netweather/weathermap/internal/sample"
)

// DiscoverErrors returns the accumulated verification errors, sorted by
// message for deterministic output.
func (m *Matcher) DiscoverErrors() []*sample.VerificationError {
	var out []*sample.VerificationError
	m.errors.Range(func(_ string, v *sample.VerificationError) bool {
		out = append(out, v)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Message < out[j].Message })
	return out
}

// ErrorsCSV serializes the accumulated verification errors as
// "errortype,source,parsed_remote,expected,full_error", header row
// first. Each message is shell-tokenized before being dropped into the
// full_error column so embedded whitespace survives a round trip through
// naive shell-based tooling downstream.
func (m *Matcher) ErrorsCSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"errortype", "source", "parsed_remote", "expected", "full_error"}); err != nil {
		return "", err
	}
	for _, verr := range m.DiscoverErrors() {
		tokens, err := shlex.Split(verr.Message)
		full := verr.Message
		if err == nil && len(tokens) > 0 {
			full = strings.Join(tokens, " ")
		}
		row := []string{
			verr.Class.String(),
			verr.Source.String(),
			verr.ParsedRemote,
			verr.Expected,
			full,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
