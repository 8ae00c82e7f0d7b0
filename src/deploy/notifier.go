package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	"github.com/solignition/ignitor/src/utils/task"

	"github.com/redis/go-redis/v9"
)

// Published on every persisted status transition.
type StatusNotification struct {
	LoanID    string                 `json:"loanId"`
	Status    model.DeploymentStatus `json:"status"`
	ProgramID string                 `json:"programId,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func (self *StatusNotification) MarshalBinary() ([]byte, error) {
	return json.Marshal(self)
}

// Broadcasts status transitions on a Redis channel so downstream
// tooling doesn't have to poll the REST surface.
type Notifier struct {
	*task.Task

	client *redis.Client
	input  chan *StatusNotification
}

func NewNotifier(config *config.Config) (self *Notifier) {
	self = new(Notifier)

	self.Task = task.NewTask(config, "notifier").
		WithOnBeforeStart(self.connect).
		WithOnAfterStop(self.disconnect).
		WithSubtaskFunc(self.run).
		WithWorkerPool(config.Redis.MaxWorkers)

	return
}

func (self *Notifier) WithInputChannel(input chan *StatusNotification) *Notifier {
	self.input = input
	return self
}

func (self *Notifier) connect() (err error) {
	self.client = redis.NewClient(&redis.Options{
		ClientName:      fmt.Sprintf("ignitor/%s", self.Name),
		Addr:            fmt.Sprintf("%s:%d", self.Config.Redis.Host, self.Config.Redis.Port),
		Username:        self.Config.Redis.User,
		Password:        self.Config.Redis.Password,
		DB:              self.Config.Redis.DB,
		MinIdleConns:    self.Config.Redis.MinIdleConns,
		MaxIdleConns:    self.Config.Redis.MaxIdleConns,
		ConnMaxIdleTime: self.Config.Redis.ConnMaxIdleTime,
		PoolSize:        self.Config.Redis.MaxOpenConns,
		ConnMaxLifetime: self.Config.Redis.ConnMaxLifetime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = self.client.Ping(ctx).Err()
	if err != nil {
		self.Log.WithError(err).Error("Failed to ping Redis")
	}
	return
}

func (self *Notifier) disconnect() {
	err := self.client.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close Redis connection")
	}
}

func (self *Notifier) run() error {
	for {
		select {
		case <-self.StopChannel:
			self.Log.Debug("Task stopped")
			return nil
		case notification := <-self.input:
			self.Workers.Submit(func() {
				self.publish(notification)
			})
		}
	}
}

func (self *Notifier) publish(notification *StatusNotification) {
	err := task.NewRetry().
		WithContext(self.Ctx).
		WithMaxElapsedTime(self.Config.Redis.MaxElapsedTime).
		WithMaxInterval(self.Config.Redis.MaxInterval).
		WithOnError(func(err error, duration time.Duration) {
			self.Log.WithError(err).Warn("Failed to publish notification, retrying")
		}).
		Run(func() error {
			return self.client.Publish(self.Ctx, self.Config.Redis.ChannelName, notification).Err()
		})
	if err != nil {
		self.Log.WithError(err).
			WithField("loan_id", notification.LoanID).
			Error("Failed to publish notification, giving up")
	}
}
