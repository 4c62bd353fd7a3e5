package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/runnerr0/profilestore/internal/metrics"
)

// metricSample is one counter or gauge value gathered from the engine's
// collectors.
type metricSample struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// gatherMetrics registers the engine collectors with a private registry
// and reads back their current values.
func gatherMetrics() ([]metricSample, error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	var samples []metricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
			samples = append(samples, metricSample{
				Name:   mf.GetName(),
				Labels: strings.Join(labels, ","),
				Value:  value,
			})
		}
	}
	return samples, nil
}

func outputMetricsTable(samples []metricSample) error {
	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Labels", "Value")

	for _, s := range samples {
		if err := table.Append([]string{s.Name, s.Labels, strconv.FormatFloat(s.Value, 'f', -1, 64)}); err != nil {
			return fmt.Errorf("render metrics: %w", err)
		}
	}
	return table.Render()
}
