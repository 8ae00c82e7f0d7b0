package monitoring

import (
	"time"

	"github.com/solignition/ignitor/src/utils/monitoring/report"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor interface {
	GetReport() *report.Report
	GetPrometheusCollector() prometheus.Collector
	ObserveDeploymentDuration(d time.Duration)
	IsOK() bool

	OnGetState(c *gin.Context)
	OnGetHealth(c *gin.Context)
}
