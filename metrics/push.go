package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

// DefaultTimeout bounds one remote write request.
const DefaultTimeout = 30 * time.Second

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the VictoriaMetrics or Prometheus server.
	// Samples are written to URL + "/api/v1/write".
	URL string
	// Prefix is prepended to every metric name, joined with an underscore.
	Prefix string
	// Job and Instance are attached to every series when set.
	Job      string
	Instance string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Clock stamps samples. Defaults to time.Now.
	Clock func() time.Time
}

// PushRegistry keeps the latest value of every series in memory and sends
// them in one remote write request on Flush. The CLI flushes once, after the
// activation finished.
type PushRegistry struct {
	url    string
	client *http.Client
	cfg    PushConfig

	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	name   string
	labels prometheus.Labels
	value  float64
}

// NewPushRegistry creates a new PushRegistry.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &PushRegistry{
		url:    strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write",
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		series: make(map[string]*series),
	}
}

// NewGauge implements Registry.
func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return pushMetric{r: r, name: opts.Name}, nil
}

// NewGaugeVec implements Registry.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, _ []string) (GaugeVec, error) {
	return pushGaugeVec{r: r, name: opts.Name}, nil
}

// NewCounter implements Registry.
func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return pushMetric{r: r, name: opts.Name}, nil
}

// NewCounterVec implements Registry.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, _ []string) (CounterVec, error) {
	return pushCounterVec{r: r, name: opts.Name}, nil
}

// Len returns the number of series waiting to be flushed.
func (r *PushRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

// Flush writes the current value of every series. Series are kept after a
// successful flush so counters keep accumulating.
func (r *PushRegistry) Flush(ctx context.Context) error {
	req := r.writeRequest()
	if len(req.Timeseries) == 0 {
		return nil
	}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(snappy.Encode(nil, data)))
	if err != nil {
		return fmt.Errorf("creating remote write request: %w", err)
	}
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("pushing %d series: %w", len(req.Timeseries), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("remote write returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (r *PushRegistry) update(name string, labels prometheus.Labels, f func(float64) float64) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[key]
	if !ok {
		s = &series{name: name, labels: maps.Clone(labels)}
		r.series[key] = s
	}
	s.value = f(s.value)
}

// writeRequest builds one sample per series, ordered by series key.
func (r *PushRegistry) writeRequest() *prompb.WriteRequest {
	now := r.cfg.Clock().UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	req := &prompb.WriteRequest{Timeseries: make([]prompb.TimeSeries, 0, len(keys))}
	for _, k := range keys {
		s := r.series[k]
		req.Timeseries = append(req.Timeseries, prompb.TimeSeries{
			Labels:  r.labels(s),
			Samples: []prompb.Sample{{Value: s.value, Timestamp: now}},
		})
	}
	return req
}

// labels returns the series labels with __name__ first and the rest sorted.
func (r *PushRegistry) labels(s *series) []prompb.Label {
	name := s.name
	if r.cfg.Prefix != "" {
		name = r.cfg.Prefix + "_" + name
	}

	extra := make([]prompb.Label, 0, len(s.labels)+2)
	for k, v := range s.labels {
		extra = append(extra, prompb.Label{Name: k, Value: v})
	}
	if r.cfg.Job != "" {
		extra = append(extra, prompb.Label{Name: "job", Value: r.cfg.Job})
	}
	if r.cfg.Instance != "" {
		extra = append(extra, prompb.Label{Name: "instance", Value: r.cfg.Instance})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })

	return append([]prompb.Label{{Name: "__name__", Value: name}}, extra...)
}

// seriesKey identifies a series by name and sorted label pairs.
func seriesKey(name string, labels prometheus.Labels) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, ",%s=%s", k, labels[k])
	}
	return b.String()
}

// pushMetric is both a Gauge and a Counter.
type pushMetric struct {
	r      *PushRegistry
	name   string
	labels prometheus.Labels
}

func (m pushMetric) Set(v float64) {
	m.r.update(m.name, m.labels, func(float64) float64 { return v })
}

func (m pushMetric) Inc() {
	m.Add(1)
}

func (m pushMetric) Add(v float64) {
	if v < 0 {
		panic("metrics: counter cannot decrease")
	}
	m.r.update(m.name, m.labels, func(cur float64) float64 { return cur + v })
}

type pushGaugeVec struct {
	r    *PushRegistry
	name string
}

func (v pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return pushMetric{r: v.r, name: v.name, labels: labels}
}

type pushCounterVec struct {
	r    *PushRegistry
	name string
}

func (v pushCounterVec) With(labels prometheus.Labels) Counter {
	return pushMetric{r: v.r, name: v.name, labels: labels}
}
