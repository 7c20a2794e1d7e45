package constants

import "time"

const (
	ServiceName = "mailsink"
	APIPrefix   = "/api"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout      = 5 * time.Second
	HealthCheckTimeout   = 2 * time.Second
	ForwarderDrainPeriod = 3 * time.Second
)

const (
	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

const (
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

const (
	RejectNotWhitelisted  = "not_whitelisted"
	RejectTooManyRcpts    = "too_many_recipients"
	RejectParseFailure    = "parse_failure"
	RejectReadFailure     = "read_failure"
	RejectMessageTooLarge = "too_large"
)

const (
	ContentTypeRFC822      = "message/rfc822"
	ContentTypeOctetStream = "application/octet-stream"
)
