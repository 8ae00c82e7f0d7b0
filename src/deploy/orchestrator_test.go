package deploy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/solignition/ignitor/src/binaries"
	"github.com/solignition/ignitor/src/observe"
	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	monitor_deployer "github.com/solignition/ignitor/src/utils/monitoring/deployer"
	"github.com/solignition/ignitor/src/utils/solana"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// In-memory Store used instead of Postgres
type memStore struct {
	mtx       sync.Mutex
	records   map[string]*model.Deployment
	watermark uint64
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*model.Deployment)}
}

func (self *memStore) Get(ctx context.Context, loanID string) (*model.Deployment, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	record, ok := self.records[loanID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (self *memStore) Put(ctx context.Context, record *model.Deployment) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	record.UpdatedAt = time.Now()
	copied := *record
	self.records[record.LoanID] = &copied
	return nil
}

func (self *memStore) ListAll(ctx context.Context) (out []*model.Deployment, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	for _, record := range self.records {
		copied := *record
		out = append(out, &copied)
	}
	return
}

func (self *memStore) ListByStatus(ctx context.Context, statuses ...model.DeploymentStatus) (out []*model.Deployment, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	for _, record := range self.records {
		for _, status := range statuses {
			if record.Status == status {
				copied := *record
				out = append(out, &copied)
				break
			}
		}
	}
	return
}

func (self *memStore) GetWatermark(ctx context.Context) (uint64, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.watermark, nil
}

func (self *memStore) SetWatermark(ctx context.Context, slot uint64) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.watermark = slot
	return nil
}

func (self *memStore) Close() error {
	return nil
}

type fakeFetcher struct {
	binary []byte
	err    error
	calls  int
}

func (self *fakeFetcher) FetchBinary(ctx context.Context, loanID, borrower string) ([]byte, error) {
	self.calls++
	return self.binary, self.err
}

// Scripted Deployer, fails the first failUntil Deploy calls
type fakeDeployer struct {
	failUntil  int
	deploys    int
	registers  int
	closes     int
	returns    int
	closeErr   error
	reclaimed  uint64
	lastLoanID uint64
	programID  solana.PublicKey
	bufferID   solana.PublicKey
}

func newFakeDeployer() *fakeDeployer {
	program, _ := solana.NewKeypair()
	buffer, _ := solana.NewKeypair()
	return &fakeDeployer{
		reclaimed: 1_000_000,
		programID: program.PublicKey(),
		bufferID:  buffer.PublicKey(),
	}
}

func (self *fakeDeployer) Deploy(ctx context.Context, loanID uint64, binary []byte) (*DeployResult, error) {
	self.deploys++
	self.lastLoanID = loanID
	if self.deploys <= self.failUntil {
		return nil, fmt.Errorf("blockhash expired, attempt %d", self.deploys)
	}
	return &DeployResult{
		ProgramID:     self.programID,
		BufferAccount: self.bufferID,
		Signature:     "deploy-signature",
	}, nil
}

func (self *fakeDeployer) RegisterDeployed(ctx context.Context, loanID uint64, programID solana.PublicKey) (string, error) {
	self.registers++
	return "register-signature", nil
}

func (self *fakeDeployer) Close(ctx context.Context, programID solana.PublicKey) (uint64, string, error) {
	self.closes++
	if self.closeErr != nil {
		return 0, "", self.closeErr
	}
	return self.reclaimed, "close-signature", nil
}

func (self *fakeDeployer) ReturnReclaimed(ctx context.Context, loanID uint64, amount uint64) (string, error) {
	self.returns++
	return "recovery-signature", nil
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

type OrchestratorTestSuite struct {
	suite.Suite

	config   *config.Config
	store    *memStore
	fetcher  *fakeFetcher
	deployer *fakeDeployer
	subject  *Orchestrator
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.config = config.Default()
	s.config.Binaries.StoragePath = s.T().TempDir()
	s.config.Deployer.MaxRetries = 3
	s.config.Deployer.RetryBaseDelay = time.Millisecond

	s.store = newMemStore()
	s.fetcher = &fakeFetcher{binary: validBinary()}
	s.deployer = newFakeDeployer()

	s.subject = NewOrchestrator(s.config).
		WithStore(s.store).
		WithFetcher(s.fetcher).
		WithBinaries(binaries.NewStore(s.config)).
		WithDeployer(s.deployer).
		WithMonitor(monitor_deployer.NewMonitor()).
		WithInputChannel(make(chan *observe.Event, 1))
}

func validBinary() []byte {
	return []byte{0x7F, 0x45, 0x4C, 0x46, 0xDE, 0xAD, 0xBE, 0xEF}
}

func loanRequested(loanID string) *observe.Event {
	return &observe.Event{
		Kind:      observe.EventKindLoanRequested,
		Source:    observe.EventSourceSubscription,
		LoanID:    loanID,
		Borrower:  "BxyzW6nGsMgQNV9snvxCRzZDSZB4BBsTLvVZMzNNhnH4",
		Principal: 5_000_000_000,
	}
}

func (s *OrchestratorTestSuite) TestEndToEndDeployment() {
	s.subject.handle(loanRequested("42"))

	record, err := s.store.Get(context.Background(), "42")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), record)
	require.Equal(s.T(), model.DeploymentStatusDeployed, record.Status)
	require.NotEmpty(s.T(), record.ProgramID)
	require.Equal(s.T(), "deploy-signature", record.DeployTxSignature)
	require.Equal(s.T(), "register-signature", record.SetDeployedTxSignature)
	require.Empty(s.T(), record.Error)

	sum := sha256.Sum256(validBinary())
	require.Equal(s.T(), hex.EncodeToString(sum[:]), record.BinaryHash)

	require.Equal(s.T(), uint64(42), s.deployer.lastLoanID)
}

func (s *OrchestratorTestSuite) TestDuplicateEventIsNoOp() {
	s.subject.handle(loanRequested("42"))
	require.Equal(s.T(), 1, s.deployer.deploys)

	// Same event delivered again, e.g. by the other detection path
	s.subject.handle(loanRequested("42"))
	require.Equal(s.T(), 1, s.deployer.deploys)
	require.Equal(s.T(), 1, s.fetcher.calls)
}

func (s *OrchestratorTestSuite) TestRetriesTransientFailures() {
	s.deployer.failUntil = 2

	s.subject.handle(loanRequested("42"))

	record, err := s.store.Get(context.Background(), "42")
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.DeploymentStatusDeployed, record.Status)
	require.Equal(s.T(), 3, s.deployer.deploys)
}

func (s *OrchestratorTestSuite) TestExhaustionMarksFailed() {
	s.deployer.failUntil = 1000

	s.subject.handle(loanRequested("42"))

	record, err := s.store.Get(context.Background(), "42")
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.DeploymentStatusFailed, record.Status)
	require.NotEmpty(s.T(), record.Error)
	// No further attempts without a new triggering event
	require.Equal(s.T(), s.config.Deployer.MaxRetries, s.deployer.deploys)
	require.Equal(s.T(), s.config.Deployer.MaxRetries, s.fetcher.calls)
}

func (s *OrchestratorTestSuite) TestFailedDeploymentIsRetriggered() {
	s.deployer.failUntil = 1000
	s.subject.handle(loanRequested("42"))

	record, _ := s.store.Get(context.Background(), "42")
	require.Equal(s.T(), model.DeploymentStatusFailed, record.Status)

	// A re-observed loanRequested restarts the state machine
	s.deployer.failUntil = 0
	s.subject.handle(loanRequested("42"))

	record, _ = s.store.Get(context.Background(), "42")
	require.Equal(s.T(), model.DeploymentStatusDeployed, record.Status)
	require.Empty(s.T(), record.Error)
}

func (s *OrchestratorTestSuite) TestValidationFailureShortCircuitsRetries() {
	s.fetcher.binary = []byte("not an elf")

	s.subject.handle(loanRequested("42"))

	record, err := s.store.Get(context.Background(), "42")
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.DeploymentStatusFailed, record.Status)
	require.NotEmpty(s.T(), record.Error)

	// Retrying an invalid binary cannot succeed, only one attempt runs
	require.Equal(s.T(), 1, s.fetcher.calls)
	require.Equal(s.T(), 0, s.deployer.deploys)
}

func (s *OrchestratorTestSuite) TestRecoveryGuard() {
	for _, status := range []model.DeploymentStatus{
		model.DeploymentStatusPending,
		model.DeploymentStatusDeploying,
		model.DeploymentStatusRecovering,
		model.DeploymentStatusRecovered,
	} {
		err := s.store.Put(context.Background(), &model.Deployment{
			LoanID: "42",
			Status: status,
		})
		require.NoError(s.T(), err)

		s.subject.handle(&observe.Event{Kind: observe.EventKindLoanExpired, LoanID: "42"})

		record, _ := s.store.Get(context.Background(), "42")
		require.Equal(s.T(), status, record.Status, "status %s must not change", status)
		require.Equal(s.T(), 0, s.deployer.closes)
	}
}

func (s *OrchestratorTestSuite) TestRecoverySuccess() {
	s.subject.handle(loanRequested("42"))

	s.subject.handle(&observe.Event{
		Kind:   observe.EventKindLoanExpired,
		Source: observe.EventSourceReconciliation,
		LoanID: "42",
	})

	record, err := s.store.Get(context.Background(), "42")
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.DeploymentStatusRecovered, record.Status)
	require.Equal(s.T(), "recovery-signature", record.RecoveryTxSignature)
	require.Equal(s.T(), 1, s.deployer.closes)
	require.Equal(s.T(), 1, s.deployer.returns)
}

func (s *OrchestratorTestSuite) TestRecoveryFailureMarksFailedOnce() {
	s.subject.handle(loanRequested("42"))

	s.deployer.closeErr = errors.New("rpc timeout")
	s.subject.handle(&observe.Event{Kind: observe.EventKindLoanRecovered, LoanID: "42"})

	record, _ := s.store.Get(context.Background(), "42")
	require.Equal(s.T(), model.DeploymentStatusFailed, record.Status)
	require.NotEmpty(s.T(), record.Error)
	require.Equal(s.T(), 1, s.deployer.closes)

	// The record stays eligible, the next sweep retries the recovery
	require.True(s.T(), record.EligibleForRecovery())
	s.deployer.closeErr = nil
	s.subject.handle(&observe.Event{Kind: observe.EventKindLoanExpired, LoanID: "42"})

	record, _ = s.store.Get(context.Background(), "42")
	require.Equal(s.T(), model.DeploymentStatusRecovered, record.Status)
}

func (s *OrchestratorTestSuite) TestRecoveredIsTerminal() {
	s.subject.handle(loanRequested("42"))
	s.subject.handle(&observe.Event{Kind: observe.EventKindLoanExpired, LoanID: "42"})
	require.Equal(s.T(), 1, s.deployer.closes)

	// Duplicate recovery triggers are no-ops
	s.subject.handle(&observe.Event{Kind: observe.EventKindLoanRecovered, LoanID: "42"})
	s.subject.handle(&observe.Event{Kind: observe.EventKindLoanExpired, LoanID: "42"})
	require.Equal(s.T(), 1, s.deployer.closes)
	require.Equal(s.T(), 1, s.deployer.returns)
}
