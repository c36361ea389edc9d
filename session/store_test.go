package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolforge/studio/conversation"
	"github.com/toolforge/studio/diagram"
	"github.com/toolforge/studio/interview"
)

type fakeEntry struct {
	key   string
	value []byte
	rev   uint64
}

func (e fakeEntry) Bucket() string                  { return SessionsBucket }
func (e fakeEntry) Key() string                     { return e.key }
func (e fakeEntry) Value() []byte                   { return e.value }
func (e fakeEntry) Revision() uint64                { return e.rev }
func (e fakeEntry) Created() time.Time              { return time.Time{} }
func (e fakeEntry) Delta() uint64                   { return 0 }
func (e fakeEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

type fakeBucket struct {
	mu      sync.Mutex
	entries map[string][]byte
	rev     uint64
	putErr  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{entries: make(map[string][]byte)}
}

func (b *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return 0, b.putErr
	}
	b.rev++
	b.entries[key] = append([]byte(nil), value...)
	return b.rev, nil
}

func (b *fakeBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{key: key, value: value, rev: b.rev}, nil
}

func (b *fakeBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(b.entries, key)
	return nil
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Persona: "oracle",
		Phase:   PhaseDesign,
		Stage:   interview.StageCurrentState3,
		Profile: interview.Profile{
			Role:       "Ops Manager",
			PainPoints: []string{"manual copying"},
		},
		Messages: []conversation.Message{
			{ID: "msg-1", Role: conversation.RoleUser, Content: "hello"},
		},
		Nodes: []diagram.Node{
			{ID: "pos_data", Label: "POS Data", Type: diagram.NodeSource, X: 14, Y: 22, Revealed: true},
		},
		Connections: []diagram.Connection{
			{ID: "conn-1", From: "pos_data", To: "merge"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	bucket := newFakeBucket()
	store := NewStoreWithBucket(bucket)

	require.NoError(t, store.Save(context.Background(), "sess-1", sampleSnapshot()))

	got, err := store.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "oracle", got.Persona)
	assert.Equal(t, PhaseDesign, got.Phase)
	assert.Equal(t, interview.StageCurrentState3, got.Stage)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Nodes, 1)
	assert.True(t, got.Nodes[0].Revealed)
	assert.False(t, got.UpdatedAt.IsZero(), "save stamps UpdatedAt")
}

func TestSaveRequiresID(t *testing.T) {
	store := NewStoreWithBucket(newFakeBucket())
	assert.Error(t, store.Save(context.Background(), "", sampleSnapshot()))
}

func TestLoadMissingSession(t *testing.T) {
	store := NewStoreWithBucket(newFakeBucket())
	_, err := store.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	bucket := newFakeBucket()
	store := NewStoreWithBucket(bucket)

	snap := sampleSnapshot()
	require.NoError(t, store.Save(context.Background(), "sess-1", snap))

	snap.Stage = interview.StageComplete
	require.NoError(t, store.Save(context.Background(), "sess-1", snap))

	got, err := store.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, interview.StageComplete, got.Stage)
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	store := NewStoreWithBucket(newFakeBucket())
	assert.NoError(t, store.Delete(context.Background(), "ghost"))
}

func TestDeleteRemovesSession(t *testing.T) {
	bucket := newFakeBucket()
	store := NewStoreWithBucket(bucket)

	require.NoError(t, store.Save(context.Background(), "sess-1", sampleSnapshot()))
	require.NoError(t, store.Delete(context.Background(), "sess-1"))

	_, err := store.Load(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
