package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	monitor_deployer "github.com/solignition/ignitor/src/utils/monitoring/deployer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	records map[string]*model.Deployment
}

func (self *fakeReader) Get(ctx context.Context, loanID string) (*model.Deployment, error) {
	return self.records[loanID], nil
}

func (self *fakeReader) ListAll(ctx context.Context) (out []*model.Deployment, err error) {
	for _, record := range self.records {
		out = append(out, record)
	}
	return
}

func newTestRouter(t *testing.T, reader *fakeReader) (*gin.Engine, *monitor_deployer.Monitor) {
	gin.SetMode(gin.TestMode)

	monitor := monitor_deployer.NewMonitor()
	server := NewServer(config.Default()).
		WithStore(reader).
		WithMonitor(monitor)

	router := gin.New()
	router.GET("/health", server.onGetHealth)
	router.GET("/deployments", server.onListDeployments)
	router.GET("/deployments/:loanId", server.onGetDeployment)
	return router, monitor
}

func TestGetHealth(t *testing.T) {
	router, monitor := newTestRouter(t, &fakeReader{})
	monitor.GetReport().Deployer.State.ActiveLoans.Store(3)
	monitor.GetReport().Deployer.State.TotalDeployments.Store(7)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, 3, body["activeLoans"])
	require.EqualValues(t, 7, body["totalDeployments"])
	require.NotZero(t, body["timestamp"])
}

func TestGetDeployment(t *testing.T) {
	router, _ := newTestRouter(t, &fakeReader{records: map[string]*model.Deployment{
		"42": {
			LoanID:    "42",
			Status:    model.DeploymentStatusDeployed,
			ProgramID: "8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR",
		},
	}})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/deployments/42", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var record model.Deployment
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &record))
	require.Equal(t, "42", record.LoanID)
	require.Equal(t, model.DeploymentStatusDeployed, record.Status)

	var keys map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &keys))
	require.Contains(t, keys, "loanId")
	require.Contains(t, keys, "programId")
}

func TestGetDeploymentNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeReader{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/deployments/999", nil))

	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListDeployments(t *testing.T) {
	router, _ := newTestRouter(t, &fakeReader{records: map[string]*model.Deployment{
		"1": {LoanID: "1", Status: model.DeploymentStatusPending},
		"2": {LoanID: "2", Status: model.DeploymentStatusDeployed},
	}})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/deployments", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var records []*model.Deployment
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &records))
	require.Len(t, records, 2)
}
