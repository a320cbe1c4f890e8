package render

import (
	"encoding/json"
	"html/template"
	"io"
	"time"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/types"
	"github.com/kyleking/askdb/internal/viz"
)

// PlotlyURL is the script the chart page loads
const PlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

var chartPage = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.Script}}"></script>
</head>
<body>
<div id="chart" style="width:100%;height:90vh;"></div>
<script>
Plotly.newPlot("chart", {{.Traces}}, {{.Layout}});
</script>
</body>
</html>
`))

type trace struct {
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
	Name string `json:"name"`
	X    []any  `json:"x"`
	Y    []any  `json:"y"`
}

type axis struct {
	Title string `json:"title"`
}

type layout struct {
	Title string `json:"title"`
	XAxis axis   `json:"xaxis"`
	YAxis axis   `json:"yaxis"`
}

// ChartHTML writes a standalone HTML page plotting rs as described by spec
func ChartHTML(w io.Writer, spec viz.ChartSpec, rs *types.ResultSet) error {
	if spec.IsNone() {
		return errors.New(errors.ErrTypeValidation, "no chart to render")
	}

	x, ok := rs.Column(spec.X)
	if !ok {
		return errors.Newf(errors.ErrTypeValidation, "chart column %q not in result", spec.X)
	}

	traces := make([]trace, 0, len(spec.Y))
	for _, name := range spec.Y {
		y, ok := rs.Column(name)
		if !ok {
			return errors.Newf(errors.ErrTypeValidation, "chart column %q not in result", name)
		}

		t := trace{Name: name, X: plotValues(x.Values), Y: plotValues(y.Values)}
		switch spec.Kind {
		case viz.ChartLine:
			t.Type, t.Mode = "scatter", "lines+markers"
		case viz.ChartBar:
			t.Type = "bar"
		case viz.ChartScatter:
			t.Type, t.Mode = "scatter", "markers"
		}
		traces = append(traces, t)
	}

	yTitle := ""
	if len(spec.Y) > 0 {
		yTitle = spec.Y[0]
	}

	tracesJSON, err := json.Marshal(traces)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode chart data")
	}
	layoutJSON, err := json.Marshal(layout{Title: spec.Title, XAxis: axis{Title: spec.X}, YAxis: axis{Title: yTitle}})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode chart layout")
	}

	return chartPage.Execute(w, map[string]any{
		"Title":  spec.Title,
		"Script": PlotlyURL,
		"Traces": template.JS(tracesJSON),
		"Layout": template.JS(layoutJSON),
	})
}

func plotValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			out[i] = t.Format(time.RFC3339)
			continue
		}
		out[i] = v
	}
	return out
}
