package monitor_deployer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	DeploymentsTotal *prometheus.Desc `json:"deployments_total"`
	RecoveryTotal    *prometheus.Desc `json:"recovery_total"`
	ActiveLoans      *prometheus.Desc `json:"active_loans"`
	QueueOverflows   *prometheus.Desc `json:"queue_overflows"`
	EventDecodeError *prometheus.Desc `json:"event_decode_errors"`

	DeploymentDuration prometheus.Histogram `json:"deployment_duration_seconds"`
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "ignitor",
	}

	return &Collector{
		DeploymentsTotal: prometheus.NewDesc("deployments_total", "", []string{"status"}, labels),
		RecoveryTotal:    prometheus.NewDesc("recovery_total", "", []string{"status"}, labels),
		ActiveLoans:      prometheus.NewDesc("active_loans", "", nil, labels),
		QueueOverflows:   prometheus.NewDesc("queue_overflows", "", nil, labels),
		EventDecodeError: prometheus.NewDesc("event_decode_errors", "", nil, labels),

		DeploymentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "deployment_duration_seconds",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.DeploymentsTotal
	ch <- self.RecoveryTotal
	ch <- self.ActiveLoans
	ch <- self.QueueOverflows
	ch <- self.EventDecodeError
	self.DeploymentDuration.Describe(ch)
}

// Collect implements required collect function for all prometheus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	deployer := &self.monitor.Report.Deployer.State
	observer := self.monitor.Report.Observer

	ch <- prometheus.MustNewConstMetric(self.DeploymentsTotal, prometheus.CounterValue, float64(deployer.DeploymentsSucceeded.Load()), "deployed")
	ch <- prometheus.MustNewConstMetric(self.DeploymentsTotal, prometheus.CounterValue, float64(deployer.DeploymentsFailed.Load()), "failed")
	ch <- prometheus.MustNewConstMetric(self.RecoveryTotal, prometheus.CounterValue, float64(deployer.RecoveriesSucceeded.Load()), "recovered")
	ch <- prometheus.MustNewConstMetric(self.RecoveryTotal, prometheus.CounterValue, float64(deployer.RecoveriesFailed.Load()), "failed")
	ch <- prometheus.MustNewConstMetric(self.ActiveLoans, prometheus.GaugeValue, float64(deployer.ActiveLoans.Load()))
	ch <- prometheus.MustNewConstMetric(self.QueueOverflows, prometheus.CounterValue, float64(observer.Errors.QueueOverflow.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventDecodeError, prometheus.CounterValue, float64(observer.Errors.EventDecode.Load()))
	self.DeploymentDuration.Collect(ch)
}
