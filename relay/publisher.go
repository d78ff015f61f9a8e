package relay

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/gomodule/redigo/redis"
	"github.com/nats-io/nats.go"
	"github.com/tilegate/gethook/log"
)

// Publisher delivers encoded envelopes to a broker subject (topic, channel).
type Publisher interface {
	Publish(subject string, key string, data []byte) error
	Close() error
}

type NatsPublisher struct {
	natsConn *nats.Conn
}

func NewNatsPublisher(urls []string, reconnectWait time.Duration) (*NatsPublisher, error) {
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	var options []nats.Option
	options = append(options, nats.Name("gethook-relay"))
	options = append(options, nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
		log.Error("nats is disconnected", log.String("connUrl", nc.ConnectedUrl()), log.ErrorAttr("err", err))
	}))
	options = append(options, nats.ReconnectHandler(func(nc *nats.Conn) {
		log.Info("nats is reconnected", log.String("connUrl", nc.ConnectedUrl()))
	}))
	options = append(options, nats.MaxReconnects(-1))
	options = append(options, nats.ReconnectWait(reconnectWait))

	natsConn, err := nats.Connect(strings.Join(urls, ","), options...)
	if err != nil {
		log.Error("Connect to nats fail", log.String("natsUrl", strings.Join(urls, ",")), log.ErrorAttr("err", err))
		return nil, err
	}

	return &NatsPublisher{natsConn: natsConn}, nil
}

func (np *NatsPublisher) Publish(subject string, _ string, data []byte) error {
	return np.natsConn.Publish(subject, data)
}

func (np *NatsPublisher) Close() error {
	err := np.natsConn.Drain()
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}

// NewProducerConfig builds an async producer config that reports errors but not successes.
func NewProducerConfig(kafkaVersion string, requiredAcks sarama.RequiredAcks) (*sarama.Config, error) {
	config := sarama.NewConfig()
	if kafkaVersion != "" {
		var err error
		if config.Version, err = sarama.ParseKafkaVersion(kafkaVersion); err != nil {
			return nil, err
		}
	}

	config.ClientID = "gethook-relay"
	config.Producer.Return.Errors = true
	config.Producer.Return.Successes = false
	config.Producer.RequiredAcks = requiredAcks
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Timeout = 10 * time.Second
	return config, nil
}

type KafkaPublisher struct {
	sarama.AsyncProducer
	wg sync.WaitGroup
}

func NewKafkaPublisher(addrs []string, config *sarama.Config) (*KafkaPublisher, error) {
	producer, err := sarama.NewAsyncProducer(addrs, config)
	if err != nil {
		return nil, err
	}

	return newKafkaPublisher(producer), nil
}

func newKafkaPublisher(producer sarama.AsyncProducer) *KafkaPublisher {
	kp := &KafkaPublisher{AsyncProducer: producer}
	kp.wg.Add(1)
	go kp.asyncRun()
	return kp
}

func (kp *KafkaPublisher) asyncRun() {
	defer kp.wg.Done()
	for em := range kp.Errors() {
		log.Error("async kafka publish error", log.String("topic", em.Msg.Topic), log.ErrorAttr("err", em.Err))
	}
}

// Publish keys messages by player so one player's events stay ordered in a partition.
func (kp *KafkaPublisher) Publish(topic string, key string, data []byte) error {
	msg := &sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(data)}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	kp.Input() <- msg
	return nil
}

func (kp *KafkaPublisher) Close() error {
	kp.AsyncClose()
	kp.wg.Wait()
	return nil
}

type RedisPublisher struct {
	redisPool *redis.Pool
}

func NewRedisPublisher(addr string, password string, maxActive int) *RedisPublisher {
	return &RedisPublisher{redisPool: &redis.Pool{
		Wait:        true,
		MaxIdle:     2,
		MaxActive:   maxActive,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			var opt []redis.DialOption
			if password != "" {
				opt = append(opt, redis.DialPassword(password))
			}
			c, err := redis.Dial("tcp", addr, opt...)
			if err != nil {
				log.Error("Connect redis fail", log.String("addr", addr), log.ErrorAttr("err", err))
				return nil, err
			}
			return c, nil
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}}
}

func (rp *RedisPublisher) Publish(channel string, _ string, data []byte) error {
	conn := rp.redisPool.Get()
	defer conn.Close()

	_, err := conn.Do("PUBLISH", channel, data)
	return err
}

func (rp *RedisPublisher) Close() error {
	return rp.redisPool.Close()
}
