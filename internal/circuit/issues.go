package circuit

import (
	"sort"
	"strings"
)

// Severity classifies a validation issue.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Code is a stable, machine-readable issue identifier surfaced to callers.
type Code string

// Issue codes. These strings are part of the external contract and must not change.
const (
	CodeAddrConflict   Code = "ADDR_CONFLICT"
	CodeAddrOutOfRange Code = "ADDR_OUT_OF_RANGE"
	CodeAddrNoBlock    Code = "ADDR_NO_BLOCK"
	CodeAddrUnassigned Code = "ADDR_UNASSIGNED"
	CodeAddrLocked     Code = "ADDR_LOCKED"

	CodeCapCurrentExceeded      Code = "CAP_CURRENT_EXCEEDED"
	CodeCapUnitLoadExceeded     Code = "CAP_UNITLOAD_EXCEEDED"
	CodeCapDeviceCountExceeded  Code = "CAP_DEVICE_COUNT_EXCEEDED"
	CodeCapMixViolation         Code = "CAP_MIX_VIOLATION"
	CodeCapDeviceOversized      Code = "CAP_DEVICE_OVERSIZED"
	CodeCapPanelCurrentExceeded Code = "CAP_PANEL_CURRENT_EXCEEDED"

	CodeDeviceIneligible Code = "DEVICE_INELIGIBLE"
	CodeConfigInvalid    Code = "CONFIG_INVALID"
)

// Issue describes one capacity or addressing problem.
type Issue struct {
	Severity           Severity `json:"severity"`
	Code               Code     `json:"code"`
	Description        string   `json:"description"`
	AffectedElementIDs []int64  `json:"affected_element_ids,omitempty"`
}

// NewIssue creates an error-severity issue. Affected IDs are sorted ascending.
func NewIssue(code Code, description string, ids ...int64) Issue {
	return Issue{
		Severity:           SeverityError,
		Code:               code,
		Description:        description,
		AffectedElementIDs: sortedIDs(ids),
	}
}

// NewWarning creates a warning-severity issue.
func NewWarning(code Code, description string, ids ...int64) Issue {
	iss := NewIssue(code, description, ids...)
	iss.Severity = SeverityWarning
	return iss
}

func sortedIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Outcome is the result of a validation. An empty issue list means success.
//
// Only error-severity issues make an outcome fail; warnings are informational.
type Outcome struct {
	Issues []Issue `json:"issues,omitempty"`
}

// Success returns an outcome with no issues.
func Success() Outcome {
	return Outcome{}
}

// Failure returns an outcome carrying the given issues.
func Failure(issues ...Issue) Outcome {
	return Outcome{Issues: issues}
}

// OK reports whether the outcome has no error-severity issues.
func (o Outcome) OK() bool {
	for _, iss := range o.Issues {
		if iss.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Add appends issues to the outcome.
func (o *Outcome) Add(issues ...Issue) {
	o.Issues = append(o.Issues, issues...)
}

// Merge appends all issues from other.
func (o *Outcome) Merge(other Outcome) {
	o.Issues = append(o.Issues, other.Issues...)
}

// Has reports whether any issue carries the given code.
func (o Outcome) Has(code Code) bool {
	for _, iss := range o.Issues {
		if iss.Code == code {
			return true
		}
	}
	return false
}

// Reason joins the descriptions of all error-severity issues.
func (o Outcome) Reason() string {
	var parts []string
	for _, iss := range o.Issues {
		if iss.Severity == SeverityError {
			parts = append(parts, iss.Description)
		}
	}
	return strings.Join(parts, "; ")
}
