package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lptrack/internal/client"
	"lptrack/internal/schema"
)

// fakeClient scripts record service behavior per entity type.
type fakeClient struct {
	mu       sync.Mutex
	listings map[schema.EntityType][]schema.Record
	listErr  error
	// listGate, when set, blocks List calls for the given entity until
	// the channel is closed. Used to simulate a slow in-flight fetch.
	listGate map[schema.EntityType]chan struct{}

	createErr error
	updateErr error
	removeErr error
	exportErr error

	created []schema.Record
	updated []struct {
		ID  any
		Rec schema.Record
	}
	removed []any
	lists   []schema.EntityType
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		listings: map[schema.EntityType][]schema.Record{},
		listGate: map[schema.EntityType]chan struct{}{},
	}
}

func (f *fakeClient) List(_ context.Context, t schema.EntityType) ([]schema.Record, error) {
	f.mu.Lock()
	gate := f.listGate[t]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, t)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings[t], nil
}

func (f *fakeClient) Create(_ context.Context, _ schema.EntityType, rec schema.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeClient) Update(_ context.Context, _ schema.EntityType, id any, rec schema.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, struct {
		ID  any
		Rec schema.Record
	}{id, rec})
	return nil
}

func (f *fakeClient) Remove(_ context.Context, _ schema.EntityType, id any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeClient) ExportOne(context.Context, schema.EntityType) error { return f.exportStatus() }
func (f *fakeClient) ExportAll(context.Context) error                    { return f.exportStatus() }

func (f *fakeClient) exportStatus() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exportErr
}

func newController(f *fakeClient) *Controller {
	return New(f, zerolog.Nop())
}

func TestSwitchEntityLoadsListing(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.LPFund] = []schema.Record{{"id": float64(1), "fund_name": "Fund I"}}

	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LPFund)

	assert.Equal(t, Loaded, c.State())
	require.Len(t, c.Listing(), 1)
	assert.Equal(t, "Fund I", c.Listing()[0]["fund_name"])
}

func TestSwitchEntityResetsEditSession(t *testing.T) {
	f := newFakeClient()
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LedgerEntry)
	c.BeginCreate()

	c.SwitchEntity(context.Background(), schema.PCAPEntry)
	kind, _ := c.Session()
	assert.Equal(t, SessionIdle, kind)
}

func TestListErrorSurfacesMessage(t *testing.T) {
	f := newFakeClient()
	f.listErr = errors.New("connection refused")
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LPLookup)

	assert.Equal(t, Failed, c.State())
	assert.Contains(t, c.Err(), "Failed to load data")
}

func TestCreateFlowRefetchesListing(t *testing.T) {
	f := newFakeClient()
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LPFund)

	c.BeginCreate()
	require.NoError(t, c.SetField("lp_short_name", "ABC"))
	require.NoError(t, c.SetField("fund_name", "Fund I"))
	require.NoError(t, c.SetField("term", "5"))
	require.NoError(t, c.SetField("management_fee", "0.02"))
	require.NoError(t, c.SetField("term_end", ""))

	require.NoError(t, c.Save(context.Background()))

	// Draft discarded, listing re-fetched (switch + post-create).
	kind, _ := c.Session()
	assert.Equal(t, SessionIdle, kind)
	assert.Len(t, f.lists, 2)

	// Submission was normalized: numbers coerced, blank date nulled.
	require.Len(t, f.created, 1)
	sent := f.created[0]
	assert.Equal(t, float64(5), sent["term"])
	assert.Equal(t, 0.02, sent["management_fee"])
	assert.Nil(t, sent["term_end"])
}

func TestCreateFailureKeepsDraft(t *testing.T) {
	f := newFakeClient()
	f.createErr = &client.ValidationError{Status: 400, Detail: "LP with this short_name already exists"}
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LPLookup)

	c.BeginCreate()
	require.NoError(t, c.SetField("short_name", "ABC"))
	err := c.Save(context.Background())
	require.Error(t, err)

	kind, draft := c.Session()
	assert.Equal(t, SessionCreating, kind)
	assert.Equal(t, "ABC", draft["short_name"])
	assert.Contains(t, c.Err(), "already exists")
	assert.Len(t, f.lists, 1, "no refetch after a failed mutation")
}

func TestUpdateTargetsOriginalIdentifier(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.LPLookup] = []schema.Record{
		{"short_name": "ABC", "source": "fund-of-funds"},
	}
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LPLookup)

	_, err := c.BeginEdit("ABC")
	require.NoError(t, err)

	// Editing the identifier field itself must not change the update
	// target: the original record's value addresses the request.
	require.NoError(t, c.SetField("short_name", "XYZ"))
	require.NoError(t, c.Save(context.Background()))

	require.Len(t, f.updated, 1)
	assert.Equal(t, "ABC", f.updated[0].ID)
	assert.Equal(t, "XYZ", f.updated[0].Rec["short_name"])
}

func TestEditAndDeleteLargeNumericID(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.LedgerEntry] = []schema.Record{
		{"id": float64(1000000), "activity": "Capital Call"},
	}
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LedgerEntry)

	// Operators type ids as displayed in the grid, which uses fixed
	// notation; a seven-digit id must still resolve to its row.
	_, err := c.BeginEdit("1000000")
	require.NoError(t, err)

	err = c.Delete(context.Background(), "1000000", func(schema.Record) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, []any{"1000000"}, f.removed)
}

func TestDeleteDeclinedIsNoOp(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.LedgerEntry] = []schema.Record{{"id": float64(3), "activity": "Capital Call"}}
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LedgerEntry)

	before := c.Listing()
	err := c.Delete(context.Background(), "3", func(schema.Record) bool { return false })
	require.NoError(t, err)

	assert.Empty(t, f.removed, "declining confirmation must not issue a request")
	assert.Equal(t, before, c.Listing())
	assert.Len(t, f.lists, 1)
}

func TestDeleteConfirmedRefetches(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.LedgerEntry] = []schema.Record{{"id": float64(3), "activity": "Capital Call"}}
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LedgerEntry)

	err := c.Delete(context.Background(), "3", func(schema.Record) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, []any{"3"}, f.removed)
	assert.Len(t, f.lists, 2)
}

func TestStaleListingResponseDiscarded(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.LPFund] = []schema.Record{{"id": float64(1), "fund_name": "stale"}}
	f.listings[schema.PCAPEntry] = []schema.Record{{"id": float64(9), "field": "fresh"}}

	gate := make(chan struct{})
	f.listGate[schema.LPFund] = gate

	c := newController(f)

	// Start a fetch for lpfund that will hang in flight.
	done := make(chan struct{})
	go func() {
		c.SwitchEntity(context.Background(), schema.LPFund)
		close(done)
	}()

	// Wait until the slow fetch is actually in flight.
	time.Sleep(20 * time.Millisecond)

	// Switch away; pcap loads immediately.
	c.SwitchEntity(context.Background(), schema.PCAPEntry)
	require.Equal(t, Loaded, c.State())

	// Release the stale lpfund response; it must not clobber pcap data.
	close(gate)
	<-done

	assert.Equal(t, schema.PCAPEntry, c.Entity())
	require.Len(t, c.Listing(), 1)
	assert.Equal(t, "fresh", c.Listing()[0]["field"])
}

func TestSaveReentrancyGuard(t *testing.T) {
	f := newFakeClient()
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LedgerEntry)
	c.BeginCreate()

	// Simulate the in-flight flag directly through a slow create.
	c.mu.Lock()
	c.session.saving = true
	c.mu.Unlock()

	err := c.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveInFlight)
	assert.Empty(t, f.created)
}

func TestExportStatusLifecycle(t *testing.T) {
	f := newFakeClient()
	c := newController(f)
	c.SetExportClearDelay(30 * time.Millisecond)
	c.SwitchEntity(context.Background(), schema.PCAPEntry)

	c.ExportTable(context.Background())
	assert.Equal(t, "Export successful!", c.ExportStatus())

	// Status auto-clears after the configured delay.
	assert.Eventually(t, func() bool { return c.ExportStatus() == "" },
		time.Second, 10*time.Millisecond)
}

func TestExportFailureClearsStatusImmediately(t *testing.T) {
	f := newFakeClient()
	f.exportErr = errors.New("boom")
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.LPLookup)

	c.ExportAll(context.Background())
	assert.Equal(t, "", c.ExportStatus())
	assert.Contains(t, c.Err(), "Failed to export data")
}

func TestFailedMutationLeavesListingUntouched(t *testing.T) {
	f := newFakeClient()
	f.listings[schema.PCAPEntry] = []schema.Record{
		{"id": float64(1), "field": "Ending Capital Balance", "amount": float64(100)},
	}
	c := newController(f)
	c.SwitchEntity(context.Background(), schema.PCAPEntry)
	before := c.Listing()

	f.removeErr = errors.New("network down")
	err := c.Delete(context.Background(), "1", func(schema.Record) bool { return true })
	require.Error(t, err)
	assert.Equal(t, before, c.Listing())
}
