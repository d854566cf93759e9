// Package metrics counts access point calls and exposes them in the
// Prometheus text exposition format.
package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/vebgen/accesskit/pkg/accesspoint"
	"github.com/vebgen/accesskit/pkg/applog"
)

// Metric names.
const (
	CallsTotal   = "accesskit_calls_total"
	CallDuration = "accesskit_call_duration_seconds"
)

// codeOK labels successful calls.
const codeOK = "ok"

type callKey struct {
	endpoint string
	code     string
}

type durationAgg struct {
	count uint64
	sum   float64
}

type gauge struct {
	name, help string
	fn         func() float64
}

// Collector is an accesspoint.Observer. It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	calls     map[callKey]uint64
	durations map[string]*durationAgg
	gauges    []gauge
}

var _ accesspoint.Observer = (*Collector)(nil)

// New returns an empty Collector.
func New() *Collector {
	return &Collector{
		calls:     make(map[callKey]uint64),
		durations: make(map[string]*durationAgg),
	}
}

// ObserveCall implements accesspoint.Observer.
func (c *Collector) ObserveCall(o accesspoint.Outcome) {
	code := string(o.Code)
	if code == "" {
		code = codeOK
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[callKey{endpoint: o.Endpoint, code: code}]++
	d, ok := c.durations[o.Endpoint]
	if !ok {
		d = &durationAgg{}
		c.durations[o.Endpoint] = d
	}
	d.count++
	d.sum += o.Duration.Seconds()
}

// GaugeFunc exports the value of fn, read at every exposition.
func (c *Collector) GaugeFunc(name, help string, fn func() float64) {
	c.mu.Lock()
	c.gauges = append(c.gauges, gauge{name: name, help: help, fn: fn})
	c.mu.Unlock()
}

// Families returns a snapshot of all metric families, sorted by name.
func (c *Collector) Families() []*dto.MetricFamily {
	c.mu.Lock()
	keys := make([]callKey, 0, len(c.calls))
	for k := range c.calls {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].endpoint != keys[j].endpoint {
			return keys[i].endpoint < keys[j].endpoint
		}
		return keys[i].code < keys[j].code
	})
	calls := &dto.MetricFamily{
		Name: proto.String(CallsTotal),
		Help: proto.String("Settled access point calls by endpoint and outcome code."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, k := range keys {
		calls.Metric = append(calls.Metric, &dto.Metric{
			Label:   labels("endpoint", k.endpoint, "code", k.code),
			Counter: &dto.Counter{Value: proto.Float64(float64(c.calls[k]))},
		})
	}

	endpoints := make([]string, 0, len(c.durations))
	for ep := range c.durations {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)
	durations := &dto.MetricFamily{
		Name: proto.String(CallDuration),
		Help: proto.String("Duration of settled access point calls."),
		Type: dto.MetricType_SUMMARY.Enum(),
	}
	for _, ep := range endpoints {
		d := c.durations[ep]
		durations.Metric = append(durations.Metric, &dto.Metric{
			Label: labels("endpoint", ep),
			Summary: &dto.Summary{
				SampleCount: proto.Uint64(d.count),
				SampleSum:   proto.Float64(d.sum),
			},
		})
	}
	gauges := append([]gauge(nil), c.gauges...)
	c.mu.Unlock()

	out := []*dto.MetricFamily{durations, calls}
	for _, g := range gauges {
		out = append(out, &dto.MetricFamily{
			Name:   proto.String(g.name),
			Help:   proto.String(g.help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(g.fn())}}},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Write renders all families in the text exposition format. Families
// without samples are skipped.
func (c *Collector) Write(w io.Writer) error {
	for _, mf := range c.Families() {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP serves the text exposition.
// Write errors are logged through the logger carried by the request context.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err := c.Write(w); err != nil {
		applog.FromContext(r.Context()).Error("metrics: write exposition", "err", err)
	}
}

func labels(kv ...string) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &dto.LabelPair{Name: proto.String(kv[i]), Value: proto.String(kv[i+1])})
	}
	return out
}
