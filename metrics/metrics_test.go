package metrics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ctrlplane/devicetransport/metrics"
	"github.com/ctrlplane/devicetransport/transport"
	"github.com/ctrlplane/devicetransport/transport/mock"
)

func TestObserveSetsGaugesFromTransportSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := metrics.New(reg)

	tr := mock.New("arduino_primary", transport.Config{}, mock.Config{}, nil, nil)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := tr.Send(context.Background(), []byte("AT\r\n")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	e.Observe(tr)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, fam := range families {
		if fam.GetName() != "devicetransport_bytes_sent_total" {
			continue
		}
		for _, m := range fam.Metric {
			if labelValue(m, "transport") == "arduino_primary" && m.GetGauge().GetValue() == 4 {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected devicetransport_bytes_sent_total{transport=\"arduino_primary\"} == 4")
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.Label {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("New panicked: %v", r)
		}
	}()
	_ = metrics.New(reg)

	out, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected at least one registered metric family")
	}
	var names []string
	for _, fam := range out {
		names = append(names, fam.GetName())
	}
	if !strings.Contains(strings.Join(names, ","), "devicetransport_latency_p95_ms") {
		t.Fatalf("expected p95 latency gauge to be registered, got %v", names)
	}
}
