package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// appendScript performs the stale-write check and the append in one step.
//
// KEYS: section zset, fence hash, meta hash, entry hash, sections set
// ARGV: section, iteration, score span, entry id, hash field/value pairs...
// Returns {1, iteration} on success or {0, current} when stale.
var appendScript = redis.NewScript(`
local iteration = tonumber(ARGV[2])
local span = tonumber(ARGV[3])
local current = -1
local last = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if #last > 0 then
  current = math.floor(tonumber(last[2]) / span)
end
local fence = tonumber(redis.call('HGET', KEYS[2], ARGV[1]) or '-1')
if fence > current then current = fence end
if iteration < current then
  return {0, current}
end
local high = tonumber(redis.call('HGET', KEYS[3], 'high_water') or '-1')
if iteration < high then
  return {0, high}
end
local seq = redis.call('ZCARD', KEYS[1])
redis.call('HSET', KEYS[4], unpack(ARGV, 5))
redis.call('ZADD', KEYS[1], iteration * span + seq, ARGV[4])
redis.call('SADD', KEYS[5], ARGV[1])
if iteration > high then
  redis.call('HSET', KEYS[3], 'high_water', iteration)
end
return {1, iteration}
`)

// sealScript closes a section for one iteration, appending the marker only
// if nothing was written for that iteration.
//
// Same KEYS and ARGV layout as appendScript.
// Returns {1, iteration} if the marker was written, {2, iteration} if the
// section already had an entry, or {0, current} when stale.
var sealScript = redis.NewScript(`
local iteration = tonumber(ARGV[2])
local span = tonumber(ARGV[3])
local current = -1
local lastIteration = -1
local last = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if #last > 0 then
  lastIteration = math.floor(tonumber(last[2]) / span)
  current = lastIteration
end
local fence = tonumber(redis.call('HGET', KEYS[2], ARGV[1]) or '-1')
if fence > current then current = fence end
if iteration < current then
  return {0, current}
end
local high = tonumber(redis.call('HGET', KEYS[3], 'high_water') or '-1')
if iteration < high then
  return {0, high}
end
local status = 2
if lastIteration ~= iteration then
  local seq = redis.call('ZCARD', KEYS[1])
  redis.call('HSET', KEYS[4], unpack(ARGV, 5))
  redis.call('ZADD', KEYS[1], iteration * span + seq, ARGV[4])
  redis.call('SADD', KEYS[5], ARGV[1])
  if iteration > high then
    redis.call('HSET', KEYS[3], 'high_water', iteration)
  end
  status = 1
end
redis.call('HSET', KEYS[2], ARGV[1], iteration + 1)
return {status, iteration}
`)

// Client is a Redis-backed Store scoped to one session.
// All keys and channels are namespaced with the session ID.
// The client is safe for concurrent use.
type Client struct {
	rdb       *redis.Client
	sessionID string
	logger    *zap.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used for failures that do not fail a write,
// such as a lost entry event.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a blackboard client for the specified session.
// Returns an error if sessionID is empty.
func NewClient(redisOpts *redis.Options, sessionID string, opts ...ClientOption) (*Client, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	c := &Client{
		rdb:       redis.NewClient(redisOpts),
		sessionID: sessionID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromURL parses a redis:// URL and creates a client for the session.
func NewClientFromURL(url, sessionID string, opts ...ClientOption) (*Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(redisOpts, sessionID, opts...)
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) scriptKeys(e *Entry) []string {
	return []string{
		SectionKey(c.sessionID, e.Section),
		FenceKey(c.sessionID),
		MetaKey(c.sessionID),
		EntryKey(c.sessionID, e.ID),
		SectionsKey(c.sessionID),
	}
}

func (c *Client) scriptArgs(e *Entry) []interface{} {
	args := []interface{}{string(e.Section), e.Iteration, ScoreSpan, e.ID}
	return append(args, entryToArgs(e)...)
}

func (c *Client) validate(e *Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}
	if e.SessionID != c.sessionID {
		return fmt.Errorf("entry belongs to session %s, client is scoped to %s", e.SessionID, c.sessionID)
	}
	return nil
}

// Append writes an entry and publishes it on the session's entry channel.
// Once the entry is committed the write has succeeded; a failed publish
// only costs watchers the live event and is logged.
func (c *Client) Append(ctx context.Context, e *Entry) error {
	if err := c.validate(e); err != nil {
		return err
	}

	res, err := appendScript.Run(ctx, c.rdb, c.scriptKeys(e), c.scriptArgs(e)...).Int64Slice()
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	if len(res) != 2 {
		return fmt.Errorf("unexpected append script reply: %v", res)
	}
	if res[0] == 0 {
		return &StaleWriteError{Section: e.Section, Iteration: e.Iteration, Current: int(res[1])}
	}

	c.publish(ctx, e)
	return nil
}

// Seal closes a section for marker.Iteration. See Store.Seal.
func (c *Client) Seal(ctx context.Context, marker *Entry) (bool, error) {
	if err := c.validate(marker); err != nil {
		return false, err
	}
	if marker.Status != StatusUnavailable {
		return false, fmt.Errorf("seal marker must have status %q", StatusUnavailable)
	}

	res, err := sealScript.Run(ctx, c.rdb, c.scriptKeys(marker), c.scriptArgs(marker)...).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("failed to seal section: %w", err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected seal script reply: %v", res)
	}

	switch res[0] {
	case 0:
		return false, &StaleWriteError{Section: marker.Section, Iteration: marker.Iteration, Current: int(res[1])}
	case 1:
		c.publish(ctx, marker)
		return true, nil
	default:
		return false, nil
	}
}

func (c *Client) publish(ctx context.Context, e *Entry) {
	data, err := json.Marshal(e)
	if err == nil {
		err = c.rdb.Publish(ctx, EntryEventsChannel(c.sessionID), data).Err()
	}
	if err != nil {
		c.logger.Warn("failed to publish entry event",
			zap.String("session_id", c.sessionID),
			zap.String("entry_id", e.ID),
			zap.String("section", string(e.Section)),
			zap.Error(err))
	}
}

// GetEntry retrieves a single entry by ID.
// Returns ErrNotFound if the entry does not exist.
func (c *Client) GetEntry(ctx context.Context, entryID string) (*Entry, error) {
	hash, err := c.rdb.HGetAll(ctx, EntryKey(c.sessionID, entryID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return HashToEntry(hash)
}

func (c *Client) Latest(ctx context.Context, section Section) (*Entry, error) {
	ids, err := c.rdb.ZRevRange(ctx, SectionKey(c.sessionID, section), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read section %s: %w", section, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("section %s: %w", section, ErrNotFound)
	}
	return c.GetEntry(ctx, ids[0])
}

func (c *Client) History(ctx context.Context, section Section) ([]*Entry, error) {
	ids, err := c.rdb.ZRange(ctx, SectionKey(c.sessionID, section), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read section %s: %w", section, err)
	}
	if len(ids) == 0 {
		return []*Entry{}, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, EntryKey(c.sessionID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load section %s entries: %w", section, err)
	}

	entries := make([]*Entry, 0, len(ids))
	for i, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			return nil, fmt.Errorf("section %s references missing entry %s", section, ids[i])
		}
		e, err := HashToEntry(hash)
		if err != nil {
			return nil, fmt.Errorf("corrupt entry %s: %w", ids[i], err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	members, err := c.rdb.SMembers(ctx, SectionsKey(c.sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	out := make([]Section, 0, len(members))
	for _, m := range members {
		out = append(out, Section(m))
	}
	sortSections(out)
	return out, nil
}

// Subscription represents an active Pub/Sub subscription to entry events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Entry
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of entry events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Entry {
	return s.events
}

// Errors returns the channel of non-fatal subscription errors.
// Malformed messages are reported here and skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEntryEvents subscribes to entry events for this session.
// The subscription is confirmed before returning, so no event published
// after this call is missed. Delivery is at-most-once on a buffered channel.
func (c *Client) SubscribeEntryEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EntryEventsChannel(c.sessionID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to entry events: %w", err)
	}

	eventsChan := make(chan *Entry, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var entry Entry
				if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal entry event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &entry:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error indicates an empty section, a
// missing entry, or a missing Redis key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}
