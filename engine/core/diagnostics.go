package core

import (
	"fmt"
	"sync"
)

// -----------------------------------------------------------------------------
// Diagnostics
// -----------------------------------------------------------------------------

// Severity classifies a diagnostic entry.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic records one non-fatal degradation observed while building or
// running a flow: a dropped server ref, a skipped tool, a stubbed kind.
type Diagnostic struct {
	Severity  Severity
	Component string
	Message   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Component, d.Message)
}

// Diagnostics collects non-fatal warnings so callers can inspect what was
// silently degraded instead of scraping log output. Safe for concurrent use.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Diagnostic
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) add(severity Severity, component, format string, args ...any) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, Diagnostic{
		Severity:  severity,
		Component: component,
		Message:   fmt.Sprintf(format, args...),
	})
}

func (d *Diagnostics) Warnf(component, format string, args ...any) {
	d.add(SeverityWarning, component, format, args...)
}

func (d *Diagnostics) Infof(component, format string, args ...any) {
	d.add(SeverityInfo, component, format, args...)
}

// Entries returns a copy of the recorded diagnostics in order of occurrence.
func (d *Diagnostics) Entries() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Warnings returns only the warning-severity entries.
func (d *Diagnostics) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, e := range d.Entries() {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}
