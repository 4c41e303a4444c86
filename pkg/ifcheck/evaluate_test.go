package ifcheck

import (
	"testing"

	"github.com/neteng-tools/popctl/pkg/health"
)

func checked(light []float64, loss float64, before, after Counters) *Interface {
	before.RXTXValid, before.CRCValid = true, true
	after.RXTXValid, after.CRCValid = true, true
	return &Interface{
		Name:         "mcx1p1",
		State:        "UP",
		Light:        light,
		PacketLoss:   loss,
		LossMeasured: true,
		Before:       before,
		After:        after,
	}
}

func status(t *testing.T, r *health.Report, check string) health.Status {
	t.Helper()
	res, err := r.Result(check)
	if err != nil {
		t.Fatal(err)
	}
	return res.Status
}

func TestEvaluate_Healthy(t *testing.T) {
	r := Evaluate(checked([]float64{-3.4}, 0, Counters{RX: 5}, Counters{RX: 5}), false)
	if r.Overall != health.StatusOK {
		t.Errorf("Overall = %q, problems %+v", r.Overall, r.Problems())
	}
	if len(r.Results) != 6 {
		t.Errorf("got %d results, want 6", len(r.Results))
	}
}

func TestEvaluate_Thresholds(t *testing.T) {
	tests := []struct {
		name  string
		iface *Interface
		check string
		want  health.Status
	}{
		{"one rx error", checked([]float64{-3}, 0, Counters{}, Counters{RX: 1}), "rx_errors", health.StatusWarning},
		{"two tx errors", checked([]float64{-3}, 0, Counters{}, Counters{TX: 2}), "tx_errors", health.StatusCritical},
		{"crc", checked([]float64{-3}, 0, Counters{CRC: 4}, Counters{CRC: 6}), "crc_errors", health.StatusCritical},
		{"light -9", checked([]float64{-9.0}, 0, Counters{}, Counters{}), "light", health.StatusOK},
		{"light weak", checked([]float64{-9.5}, 0, Counters{}, Counters{}), "light", health.StatusWarning},
		{"light very weak", checked([]float64{-11.2}, 0, Counters{}, Counters{}), "light", health.StatusCritical},
		{"one lane dark", checked([]float64{-1, -2, NoLight, -1}, 0, Counters{}, Counters{}), "light", health.StatusCritical},
		{"loss 0.1", checked([]float64{-3}, 0.1, Counters{}, Counters{}), "packet_loss", health.StatusOK},
		{"loss 0.2", checked([]float64{-3}, 0.2, Counters{}, Counters{}), "packet_loss", health.StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Evaluate(tt.iface, false)
			if got := status(t, r, tt.check); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.check, got, tt.want)
			}
		})
	}
}

func TestEvaluate_LinkDown(t *testing.T) {
	iface := checked([]float64{-3}, 0, Counters{}, Counters{})
	iface.State = "DOWN"
	r := Evaluate(iface, false)
	if r.Overall != health.StatusCritical {
		t.Errorf("Overall = %q, want critical", r.Overall)
	}
}

func TestEvaluate_Unsampled(t *testing.T) {
	iface := &Interface{Name: "mcx1p1", State: "UP", Light: []float64{-2}}
	r := Evaluate(iface, false)
	if got := status(t, r, "crc_errors"); got != health.StatusUnknown {
		t.Errorf("crc_errors = %q, want unknown", got)
	}
	if got := status(t, r, "packet_loss"); got != health.StatusUnknown {
		t.Errorf("packet_loss = %q, want unknown", got)
	}
	if r.Overall != health.StatusUnknown {
		t.Errorf("Overall = %q, want unknown", r.Overall)
	}
}

func TestEvaluate_Diagnostic(t *testing.T) {
	iface := &Interface{Name: "mcx2p1", Light: []float64{-10}}
	r := Evaluate(iface, true)
	if len(r.Results) != 1 || r.Results[0].Check != "light" {
		t.Fatalf("diagnostic results = %+v", r.Results)
	}
	if r.Overall != health.StatusWarning {
		t.Errorf("Overall = %q, want warning", r.Overall)
	}
}
