package deploy

import (
	"github.com/solignition/ignitor/src/binaries"
	"github.com/solignition/ignitor/src/gateway"
	"github.com/solignition/ignitor/src/observe"
	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	monitor_deployer "github.com/solignition/ignitor/src/utils/monitoring/deployer"
	"github.com/solignition/ignitor/src/utils/solana"
	"github.com/solignition/ignitor/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Wires the whole service together. Both observer paths feed one shared
// event queue consumed by the orchestrator. Startup errors here are
// fatal, a misconfigured service never reaches steady state.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "controller")

	admin, err := solana.LoadKeypair(config.Solana.KeypairPath)
	if err != nil {
		return
	}

	protocol, err := solana.PublicKeyFromBase58(config.Solana.ProgramAddress)
	if err != nil {
		return
	}

	db, err := model.NewConnection(self.Ctx, config, "ignitor")
	if err != nil {
		return
	}
	store := NewGormStore(db)

	monitor := monitor_deployer.NewMonitor()

	client := solana.NewClient(config)

	builder := NewBuilder(config).
		WithClient(client).
		WithAdmin(admin).
		WithProtocol(protocol)

	events := make(chan *observe.Event, config.Deployer.QueueSize)

	listener := observe.NewListener(config).
		WithClient(client).
		WithMonitor(monitor).
		WithOutputChannel(events)

	reconciler := observe.NewReconciler(config).
		WithDeployments(store).
		WithChainReader(observe.NewRpcChainReader(client, protocol)).
		WithMonitor(monitor).
		WithOutputChannel(events)

	orchestrator := NewOrchestrator(config).
		WithStore(store).
		WithFetcher(binaries.NewHttpFetcher(config)).
		WithBinaries(binaries.NewStore(config)).
		WithDeployer(builder).
		WithMonitor(monitor).
		WithInputChannel(events)

	server := gateway.NewServer(config).
		WithStore(store).
		WithMonitor(monitor)

	if config.Redis.Host != "" {
		notifications := make(chan *StatusNotification, config.Redis.MaxQueueSize)
		notifier := NewNotifier(config).
			WithInputChannel(notifications)
		orchestrator.WithNotificationsChannel(notifications)
		self.Task = self.Task.WithSubtask(notifier.Task)
	}

	self.Task = self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(server.Task).
		WithSubtask(orchestrator.Task).
		WithSubtask(listener.Task).
		WithSubtask(reconciler.Task).
		WithOnAfterStop(func() {
			err := store.Close()
			if err != nil {
				self.Log.WithError(err).Error("Failed to close the deployment store")
			}
		})

	return
}
