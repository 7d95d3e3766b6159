package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// renderMetrics gathers every metric family whose name starts with prefix
// and renders one row per series.
func renderMetrics(g prometheus.Gatherer, prefix string) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}
	t := ui.NewTable([]ui.Column{
		{Title: "Metric", Width: 36},
		{Title: "Labels", Width: 34},
		{Title: "Value", Width: 14, Right: true},
	})
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			t.AddRow(ui.Row{mf.GetName(), labelString(m.GetLabel()), sampleValue(mf.GetType(), m)})
		}
	}
	return t.Render(), nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}

// sampleValue is the counter or gauge value, or the observation count of a
// histogram.
func sampleValue(typ dto.MetricType, m *dto.Metric) string {
	var v float64
	switch typ {
	case dto.MetricType_COUNTER:
		v = m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		v = m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return fmt.Sprintf("n=%d", m.GetHistogram().GetSampleCount())
	default:
		v = m.GetUntyped().GetValue()
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
