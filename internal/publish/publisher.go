package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/TimBim12345/SME/internal/models"
)

const (
	RunChannel       = "sme:runs"
	RunStream        = "sme:runs:stream"
	DefaultRedisAddr = "localhost:6379"

	// streamMaxLen caps the run history kept in the stream
	streamMaxLen = 1000
)

// RunSummary announces a completed generation run
type RunSummary struct {
	RunID          string    `json:"run_id"`
	GeneratedAt    string    `json:"generated_at"`
	TotalCompanies int64     `json:"total_companies"`
	TotalGroups    int       `json:"total_groups"`
	Seed           int64     `json:"seed"`
	ElapsedMS      int64     `json:"elapsed_ms,omitempty"`
	TopRegion      string    `json:"top_region,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewRunSummary describes dataset d produced in elapsed
func NewRunSummary(d *models.Dataset, elapsed time.Duration) RunSummary {
	s := RunSummary{
		RunID:          d.Metadata.RunID,
		GeneratedAt:    d.Metadata.GeneratedAt,
		TotalCompanies: d.Metadata.TotalCompanies,
		TotalGroups:    d.Metadata.TotalGroups,
		Seed:           d.Metadata.Seed,
		ElapsedMS:      elapsed.Milliseconds(),
		Timestamp:      time.Now().UTC(),
	}
	if d.Statistics != nil && len(d.Statistics.TopRegions) > 0 {
		s.TopRegion = d.Statistics.TopRegions[0].Name
	}
	return s
}

// Publisher sends run notifications to Redis
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a publisher for the Redis server at addr
func NewPublisher(addr string) *Publisher {
	if addr == "" {
		addr = DefaultRedisAddr
	}
	return &Publisher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Close closes the Redis connection
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Ping checks that the server is reachable
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// PublishRun publishes the summary to the run channel and appends it to the run stream
func (p *Publisher) PublishRun(ctx context.Context, summary RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run summary")
	}

	if err := p.client.Publish(ctx, RunChannel, string(data)).Err(); err != nil {
		return errors.Wrap(err, "failed to publish to Redis")
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: RunStream,
		MaxLen: streamMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"run_id": summary.RunID,
			"data":   string(data),
		},
	}).Err()
	if err != nil {
		return errors.Wrap(err, "failed to add to Redis stream")
	}
	return nil
}

// SubscriberCount returns the number of subscribers of the run channel
func (p *Publisher) SubscriberCount(ctx context.Context) (int64, error) {
	result, err := p.client.PubSubNumSub(ctx, RunChannel).Result()
	if err != nil {
		return 0, err
	}
	return result[RunChannel], nil
}
