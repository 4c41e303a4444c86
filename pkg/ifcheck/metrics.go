package ifcheck

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/neteng-tools/popctl/pkg/health"
)

var statusValue = map[health.Status]float64{
	health.StatusOK:       0,
	health.StatusWarning:  1,
	health.StatusCritical: 2,
	health.StatusUnknown:  3,
}

// Collector exposes one check run as Prometheus gauges.
type Collector struct {
	server  string
	ifaces  []*Interface
	reports map[string]*health.Report

	light  *prometheus.Desc
	loss   *prometheus.Desc
	errors *prometheus.Desc
	linkUp *prometheus.Desc
	status *prometheus.Desc
}

// NewCollector builds a collector over checked interfaces and their
// reports, keyed by interface name.
func NewCollector(server string, ifaces []*Interface, reports map[string]*health.Report) *Collector {
	constLabels := prometheus.Labels{"server": server}
	return &Collector{
		server:  server,
		ifaces:  ifaces,
		reports: reports,
		light: prometheus.NewDesc("ifcheck_light_dbm",
			"Optical receive power per lane in dBm, -99 without light.",
			[]string{"interface", "lane"}, constLabels),
		loss: prometheus.NewDesc("ifcheck_packet_loss_percent",
			"Packet loss to the circuit far end.",
			[]string{"interface"}, constLabels),
		errors: prometheus.NewDesc("ifcheck_errors_delta",
			"Error counter increase over the sampling interval.",
			[]string{"interface", "counter"}, constLabels),
		linkUp: prometheus.NewDesc("ifcheck_link_up",
			"1 when the link is up.",
			[]string{"interface"}, constLabels),
		status: prometheus.NewDesc("ifcheck_status",
			"Overall status: 0 ok, 1 warning, 2 critical, 3 unknown.",
			[]string{"interface"}, constLabels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.light
	ch <- c.loss
	ch <- c.errors
	ch <- c.linkUp
	ch <- c.status
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, iface := range c.ifaces {
		for lane, l := range iface.Light {
			ch <- prometheus.MustNewConstMetric(c.light, prometheus.GaugeValue, l, iface.Name, strconv.Itoa(lane))
		}
		if iface.LossMeasured {
			ch <- prometheus.MustNewConstMetric(c.loss, prometheus.GaugeValue, iface.PacketLoss, iface.Name)
		}
		d := iface.Delta()
		if d.RXTXValid {
			ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, float64(d.RX), iface.Name, "rx")
			ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, float64(d.TX), iface.Name, "tx")
		}
		if d.CRCValid {
			ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, float64(d.CRC), iface.Name, "crc")
		}
		if iface.State != "" {
			up := 0.0
			if iface.State == "UP" {
				up = 1
			}
			ch <- prometheus.MustNewConstMetric(c.linkUp, prometheus.GaugeValue, up, iface.Name)
		}
		if r, ok := c.reports[iface.Name]; ok {
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, statusValue[r.Overall], iface.Name)
		}
	}
}

// WriteTextfile writes the collector in the node_exporter textfile format.
func WriteTextfile(path string, c *Collector) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
