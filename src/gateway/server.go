package gateway

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	"github.com/solignition/ignitor/src/utils/monitoring"
	"github.com/solignition/ignitor/src/utils/task"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DeploymentReader is the read-only slice of the deployment store the
// REST surface serves.
type DeploymentReader interface {
	Get(ctx context.Context, loanID string) (*model.Deployment, error)
	ListAll(ctx context.Context) ([]*model.Deployment, error)
}

// Read-only operational surface. Everything served here comes from the
// deployment store or the in-process monitor, the server never mutates
// state.
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	store   DeploymentReader
	monitor monitoring.Monitor
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "gateway").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	gin.SetMode(gin.ReleaseMode)
	self.Router = gin.New()
	self.Router.Use(gin.Recovery())

	self.httpServer = &http.Server{
		Addr:              self.Config.Gateway.RESTListenAddress,
		Handler:           self.Router,
		ReadHeaderTimeout: self.Config.Gateway.ServerRequestTimeout,
	}

	return
}

func (self *Server) WithStore(store DeploymentReader) *Server {
	self.store = store
	return self
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

func (self *Server) run() (err error) {
	self.Router.GET("/health", self.onGetHealth)
	self.Router.GET("/state", self.monitor.OnGetState)
	self.Router.GET("/deployments", self.onListDeployments)
	self.Router.GET("/deployments/:loanId", self.onGetDeployment)

	registry := prometheus.NewRegistry()
	err = registry.Register(self.monitor.GetPrometheusCollector())
	if err != nil {
		return
	}
	self.Router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if self.Config.Profiler.Enabled {
		runtime.SetBlockProfileRate(self.Config.Profiler.BlockProfileRate)
		pprof.Register(self.Router)
	}

	self.Log.WithField("address", self.Config.Gateway.RESTListenAddress).Info("Starting REST server")

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
	}
}

func (self *Server) onGetHealth(c *gin.Context) {
	status := http.StatusOK
	health := "ok"
	if !self.monitor.IsOK() {
		status = http.StatusServiceUnavailable
		health = "unhealthy"
	}

	state := &self.monitor.GetReport().Deployer.State
	c.JSON(status, gin.H{
		"status":           health,
		"activeLoans":      state.ActiveLoans.Load(),
		"totalDeployments": state.TotalDeployments.Load(),
		"timestamp":        time.Now().Unix(),
	})
}

func (self *Server) onListDeployments(c *gin.Context) {
	records, err := self.store.ListAll(c.Request.Context())
	if err != nil {
		self.Log.WithError(err).Error("Failed to list deployments")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (self *Server) onGetDeployment(c *gin.Context) {
	record, err := self.store.Get(c.Request.Context(), c.Param("loanId"))
	if err != nil {
		self.Log.WithError(err).Error("Failed to load deployment record")
		c.Status(http.StatusInternalServerError)
		return
	}
	if record == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, record)
}
