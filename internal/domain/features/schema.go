package features

// Schema is the ordered feature-name list a model was trained on.
type Schema struct {
	Features []string `json:"features"`
}

// Capture records the columns of a training frame as the schema.
func Capture(f *Frame) Schema {
	return Schema{Features: f.Columns()}
}

// Len returns the number of features.
func (s Schema) Len() int { return len(s.Features) }

// Position returns the column index of name.
func (s Schema) Position(name string) (int, bool) {
	for i, n := range s.Features {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// AlignReport lists the columns Align had to invent or discard.
type AlignReport struct {
	Filled  []string // in schema, absent from the frame; zero-filled
	Dropped []string // in the frame, absent from the schema
}

// Clean reports whether the frame matched the schema exactly as a set.
func (r AlignReport) Clean() bool { return len(r.Filled) == 0 && len(r.Dropped) == 0 }

// Align projects f onto the schema: schema columns in schema order, missing
// ones filled with zero, extra ones dropped.
func (s Schema) Align(f *Frame) (*Frame, AlignReport) {
	var report AlignReport
	inSchema := make(map[string]bool, len(s.Features))
	out := &Frame{
		records: f.records,
		names:   make([]string, 0, len(s.Features)),
		cols:    make([][]float64, 0, len(s.Features)),
		rows:    f.rows,
	}
	for _, name := range s.Features {
		if inSchema[name] {
			continue
		}
		inSchema[name] = true
		c, ok := f.Column(name)
		if !ok {
			c = make([]float64, f.rows)
			report.Filled = append(report.Filled, name)
		}
		out.names = append(out.names, name)
		out.cols = append(out.cols, c)
	}
	for _, name := range f.names {
		if !inSchema[name] {
			report.Dropped = append(report.Dropped, name)
		}
	}
	out.reindex()
	return out, report
}
