package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/netweather/weathermap/internal/wmerrors"
)

type requestBodyTooLargeError struct {
	Limit int64
}

func (e *requestBodyTooLargeError) Error() string {
	return fmt.Sprintf("request body too large (max %d bytes)", e.Limit)
}

// DecodeBody decodes the JSON request body into v, rejecting unknown fields
// and any content past the single JSON value.
func DecodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestBodyTooLargeError{Limit: maxErr.Limit}
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestBodyTooLargeError{Limit: maxErr.Limit}
		}
		return fmt.Errorf("invalid request body: must contain a single JSON value")
	}
	return nil
}

// ParseBoolQuery parses an optional boolean query parameter. Returns false
// when the parameter is absent.
func ParseBoolQuery(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: must be true or false", key)
	}
	return b, nil
}

const (
	nodeListMaxEntries  = 60
	nodeListMaxChars    = 250
	uplinkListMaxChars  = 1500
	nodeListEntryFormat = "[A-Za-z0-9_ -]+"
)

var nodeListEntryPattern = regexp.MustCompile("^" + nodeListEntryFormat + "$")

// validateNodeList splits a comma-separated node/remote-list path or query
// parameter and checks it against the bounds every node/link/utilization
// endpoint enforces: at most maxChars total, at most 60 entries, each
// matching [A-Za-z0-9_ -]+, at least one entry. Grounded directly on
// original_source/weathermap/api.py's validate_node (uplink contexts get
// the 1500-char allowance since a page of uplinks may list many remotes
// with no per-node utilization column).
func validateNodeList(raw string, maxChars int) ([]string, error) {
	if len(raw) > maxChars {
		return nil, wmerrors.Validation("node list: exceeds %d characters", maxChars)
	}
	parts := strings.Split(raw, ",")
	if len(parts) > nodeListMaxEntries {
		return nil, wmerrors.Validation("node list: at most %d entries allowed", nodeListMaxEntries)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nodeListEntryPattern.MatchString(p) {
			return nil, wmerrors.Validation("node list: entry %q must match %s", p, nodeListEntryFormat)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, wmerrors.Validation("node list: must contain at least one node")
	}
	return out, nil
}
