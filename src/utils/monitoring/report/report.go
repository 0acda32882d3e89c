package report

type Report struct {
	Run            *RunReport            `json:"run,omitempty"`
	Queue          *QueueReport          `json:"queue,omitempty"`
	Evidence       *EvidenceReport       `json:"evidence,omitempty"`
	RedisPublisher *RedisPublisherReport `json:"redis_publisher,omitempty"`
	Api            *ApiReport            `json:"api,omitempty"`
}
