package eventbus

import (
	"context"
	"encoding/json"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/metrics"
	"rank-annotation-backend/utils"
	"strconv"
)

type Config struct {
	RabbitMQConfig MQConnectionConfig
	// 为 true 时在本进程内消费提交事件并写入审计日志
	Audit bool
}

const QueueAnnotationCommitted = "annotation_committed"

/*
Bus 把提交成功的事件发布到 RabbitMQ。
*/
type Bus struct {
	manager *Manager
}

func New(config *Config) (*Bus, error) {
	manager, err := Dial(config.RabbitMQConfig.ToURL(), []string{QueueAnnotationCommitted})
	if err != nil {
		return nil, err
	}

	bus := &Bus{manager: manager}
	if config.Audit {
		if err := manager.Consume(QueueAnnotationCommitted, auditCommitted); err != nil {
			manager.Close()
			return nil, utils.WrapError(err, "listen on commit events fail")
		}
	}
	return bus, nil
}

func (b *Bus) PublishCommitted(ctx context.Context, event *commit.Event) error {
	return b.manager.Publish(ctx, QueueAnnotationCommitted, event)
}

func (b *Bus) Close() {
	err := b.manager.Close()
	if err != nil {
		b.manager.logger.WithError(err).Errorf("event bus close fail with err:\n%v", err)
	}
}

func decodeEvent(body []byte) (*commit.Event, error) {
	var event commit.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, utils.WrapError(err, "json unmarshal fail")
	}
	return &event, nil
}

func auditCommitted(msg *amqp.Delivery) error {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		return err
	}

	metrics.EventsConsumedTotal.WithLabelValues(strconv.Itoa(int(event.Round))).Inc()
	logging.Default().WithFields(logrus.Fields{
		"event":    event.EventID,
		"sentence": event.SentenceID,
		"row":      event.Row,
		"round":    event.Round,
	}).Infof("annotation committed at [%s]", event.CommittedAt.Format("2006-01-02 15:04:05"))
	return nil
}
