package kafka_config

import "time"

const (
	DefaultTopic = "amokanban.events"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
)
