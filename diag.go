package typebridge

import "fmt"

// Diag carries non-fatal warnings produced while converting schemas between
// dialects: degraded constructs, dropped constraints, unresolved references.
// A nil *Diag discards warnings, so converters can call Warnf unconditionally.
type Diag struct{ ws []string }

// HasWarnings reports whether any warning was recorded.
func (d *Diag) HasWarnings() bool { return d != nil && len(d.ws) > 0 }

// Warnings returns a copy of the recorded warnings.
func (d *Diag) Warnings() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.ws...)
}

// Warnf records a formatted warning.
func (d *Diag) Warnf(f string, a ...any) {
	if d == nil {
		return
	}
	d.ws = append(d.ws, fmt.Sprintf(f, a...))
}
