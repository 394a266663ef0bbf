package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/utils"
	"sync"
)

var (
	ErrClosed       = errors.New("event bus has been closed")
	ErrUnknownQueue = errors.New("queue is not declared by this manager")
	ErrNacked       = errors.New("broker refused the message")
)

type MQConnectionConfig struct {
	User string
	Pwd  string
	Host string
	Port int
	// 为空时使用默认的 "/"
	VHost string
}

func (c *MQConnectionConfig) ToURL() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Pwd,
		Vhost:    vhost,
	}.String()
}

func GenerateTestMQConnectionConfig() MQConnectionConfig {
	return MQConnectionConfig{
		User: "guest",
		Pwd:  "guest",
		Host: "localhost",
		Port: 5672,
	}
}

/*
Manager 持有一条 RabbitMQ 连接。

发送共用一个开启了 confirm 模式的 channel，Publish 在 broker 确认后才返回；
每个消费者使用独立的 channel，处理成功后 ack，失败时 nack 且不重新入队。
*/
type Manager struct {
	logger *logrus.Logger
	conn   *amqp.Connection
	queues map[string]struct{}

	pubLock  sync.Mutex
	pubCh    *amqp.Channel
	confirms chan amqp.Confirmation
	nextTag  uint64
	closed   bool

	stop      chan struct{}
	consumers sync.WaitGroup
	closeOnce sync.Once
}

/*
Dial 建立连接并声明 queues 中的持久化队列。
*/
func Dial(url string, queues []string) (*Manager, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, utils.WrapError(err, "dial rabbitmq fail")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, utils.WrapError(err, "open publish channel fail")
	}

	declared := make(map[string]struct{}, len(queues))
	for _, name := range queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, utils.WrapErrorf(err, "declare queue [%s] fail", name)
		}
		declared[name] = struct{}{}
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, utils.WrapError(err, "enable publisher confirms fail")
	}

	return &Manager{
		logger:   logging.NewLogger(),
		conn:     conn,
		queues:   declared,
		pubCh:    ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 16)),
		stop:     make(chan struct{}),
	}, nil
}

/*
Publish 把 obj 编码为 JSON 发送到 queue，并等待 broker 确认。
ctx 结束时立即返回，此时消息可能已经被投递。
*/
func (mq *Manager) Publish(ctx context.Context, queue string, obj any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := mq.queues[queue]; !ok {
		return utils.WrapErrorf(ErrUnknownQueue, "queue [%s]", queue)
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return utils.WrapError(err, "json marshal fail")
	}

	mq.pubLock.Lock()
	defer mq.pubLock.Unlock()

	if mq.closed {
		return ErrClosed
	}

	err = mq.pubCh.Publish("", queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return utils.WrapErrorf(err, "publish to [%s] fail", queue)
	}
	mq.nextTag++

	return mq.waitConfirm(ctx, mq.nextTag)
}

// 调用方持有 pubLock；之前超时放弃的确认在这里被丢弃
func (mq *Manager) waitConfirm(ctx context.Context, tag uint64) error {
	for {
		select {
		case confirm, ok := <-mq.confirms:
			if !ok {
				return ErrClosed
			}
			if confirm.DeliveryTag < tag {
				continue
			}
			if !confirm.Ack {
				return ErrNacked
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

/*
Consume 在后台消费 queue，直到 Close 被调用或者连接断开。
*/
func (mq *Manager) Consume(queue string, handle func(msg *amqp.Delivery) error) error {
	if _, ok := mq.queues[queue]; !ok {
		return utils.WrapErrorf(ErrUnknownQueue, "queue [%s]", queue)
	}

	ch, err := mq.conn.Channel()
	if err != nil {
		return utils.WrapError(err, "open consume channel fail")
	}

	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		return utils.WrapError(err, "set qos fail")
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return utils.WrapErrorf(err, "consume queue [%s] fail", queue)
	}

	mq.consumers.Add(1)
	go func() {
		defer mq.consumers.Done()
		defer ch.Close()

		for {
			select {
			case msg, alive := <-deliveries:
				if !alive {
					mq.logger.Infof("consumer of queue [%s] exits since delivery channel closed", queue)
					return
				}
				mq.handle(queue, &msg, handle)
			case <-mq.stop:
				mq.logger.Infof("consumer of queue [%s] exits due to Close", queue)
				return
			}
		}
	}()

	return nil
}

func (mq *Manager) handle(queue string, msg *amqp.Delivery, handle func(msg *amqp.Delivery) error) {
	if err := handle(msg); err != nil {
		mq.logger.WithError(err).Errorf("handle message from [%s] fail, dropping it", queue)
		if err := msg.Nack(false, false); err != nil {
			mq.logger.WithError(err).Warnf("nack message from [%s] fail", queue)
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		mq.logger.WithError(err).Warnf("ack message from [%s] fail", queue)
	}
}

/*
Close 停止所有消费者并关闭连接。重复调用返回 ErrClosed。
*/
func (mq *Manager) Close() error {
	err := ErrClosed
	mq.closeOnce.Do(func() {
		close(mq.stop)

		mq.pubLock.Lock()
		mq.closed = true
		mq.pubLock.Unlock()

		mq.consumers.Wait()
		err = mq.conn.Close()
	})
	return err
}
