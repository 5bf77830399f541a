package etl

import "strings"

const (
	// exploringMarker flags a policy still under consideration.
	exploringMarker = "exploring"
	// yesMarker flags a policy in force.
	yesMarker = "x"
)

// MarkerTransform turns mark-style columns ("X", free text, blank) into
// 0/1 indicator columns. Sources and Targets are matched by position.
type MarkerTransform struct {
	Sources []string
	Targets []string
}

func (m *MarkerTransform) Transform(t *Table) (*Table, error) {
	if len(m.Sources) != len(m.Targets) {
		return nil, configErrorf("markers: %d source columns but %d target names", len(m.Sources), len(m.Targets))
	}
	for i, src := range m.Sources {
		if !t.HasColumn(src) {
			return nil, &MissingColumnError{Stage: "markers", Column: src}
		}
		if m.Targets[i] == "" {
			return nil, configErrorf("markers: empty target name for column %q", src)
		}
	}

	out := t.Clone()
	for i, src := range m.Sources {
		target := m.Targets[i]
		for row := range out.Records {
			data := out.Records[row].Data
			n, err := markerIndicator(data[src])
			if err != nil {
				return nil, &CoercionError{
					Column: src,
					Row:    row + 1,
					Value:  cellText(data[src]),
					Target: FieldInteger,
				}
			}
			data[target] = n
		}
		out.setField(target, FieldInteger)
	}
	return out, nil
}

// markerIndicator applies the marker rules to one cell. The exploring
// check rewrites the value before the yes check sees it, so a suppressed
// cell stays 0.
func markerIndicator(v any) (int, error) {
	s := cellText(v)
	if strings.TrimSpace(s) == "" {
		s = "0"
	}
	if containsFold(s, exploringMarker) {
		s = "0"
	}
	if containsFold(s, yesMarker) {
		s = "1"
	}
	return parseIndicator(s)
}

// parseIndicator accepts exactly "0" or "1", ignoring surrounding space.
func parseIndicator(s string) (int, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	}
	return 0, ErrDataQuality
}

// NormalizeMarkers adds one indicator column per (source, target) pair.
func NormalizeMarkers(t *Table, sources, targets []string) (*Table, error) {
	return (&MarkerTransform{Sources: sources, Targets: targets}).Transform(t)
}
