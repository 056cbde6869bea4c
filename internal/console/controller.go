// Package console orchestrates the generic record console: it owns the
// listing for the active entity type and the single edit session, applies
// mutations through the record service client, and re-fetches the full
// listing after every successful mutation. There is no local cache
// patching: the server listing is the only source of truth, so a partial
// failure can never leave a half-applied grid on screen.
package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lptrack/internal/normalize"
	"lptrack/internal/schema"
)

// RecordClient is the slice of the record service client the controller
// needs. None of its methods touch controller state.
type RecordClient interface {
	List(ctx context.Context, t schema.EntityType) ([]schema.Record, error)
	Create(ctx context.Context, t schema.EntityType, rec schema.Record) error
	Update(ctx context.Context, t schema.EntityType, id any, rec schema.Record) error
	Remove(ctx context.Context, t schema.EntityType, id any) error
	ExportOne(ctx context.Context, t schema.EntityType) error
	ExportAll(ctx context.Context) error
}

// ViewState is the listing lifecycle for the active entity-type view.
type ViewState int

const (
	Idle ViewState = iota
	Loading
	Loaded
	Failed
)

// SessionKind is the edit-surface state. Creating and Editing are mutually
// exclusive; starting one discards the other.
type SessionKind int

const (
	SessionIdle SessionKind = iota
	SessionCreating
	SessionEditing
)

var (
	ErrNoEditSession  = errors.New("no edit session in progress")
	ErrSaveInFlight   = errors.New("a save for this draft is already in flight")
	ErrRecordNotFound = errors.New("record not found in current listing")
)

type editSession struct {
	kind     SessionKind
	draft    schema.Record
	original schema.Record // the unmodified record, for identifier resolution
	saving   bool
}

type Controller struct {
	client RecordClient
	log    zerolog.Logger

	// exportClearDelay is how long a successful export status stays on
	// screen before auto-clearing.
	exportClearDelay time.Duration

	mu           sync.Mutex
	entity       schema.EntityType
	state        ViewState
	listing      []schema.Record
	errMsg       string
	listGen      uint64
	session      editSession
	exportStatus string
	statusTimer  *time.Timer
}

func New(client RecordClient, log zerolog.Logger) *Controller {
	return &Controller{
		client:           client,
		log:              log,
		entity:           schema.LPLookup,
		exportClearDelay: 3 * time.Second,
	}
}

// SetExportClearDelay overrides the export status auto-clear delay.
func (c *Controller) SetExportClearDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exportClearDelay = d
}

// Entity returns the active entity type.
func (c *Controller) Entity() schema.EntityType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity
}

// State returns the listing lifecycle state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Listing returns the last successfully fetched records. The returned slice
// is a copy; the controller's own listing is replaced wholesale on fetch
// and never mutated in place.
func (c *Controller) Listing() []schema.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schema.Record, len(c.listing))
	copy(out, c.listing)
	return out
}

// Err returns the current user-visible error message, empty when none.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// ExportStatus returns the transient export status message.
func (c *Controller) ExportStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exportStatus
}

// Session returns the edit-surface state and, when active, a copy of the
// draft record.
func (c *Controller) Session() (SessionKind, schema.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.kind == SessionIdle {
		return SessionIdle, nil
	}
	return c.session.kind, c.session.draft.Clone()
}

// SwitchEntity makes t the active entity type: any edit session is
// discarded, displayed data is cleared, and a fresh listing is fetched.
// Switching also invalidates interest in any in-flight fetch for the
// previous type; a late response is dropped rather than applied.
func (c *Controller) SwitchEntity(ctx context.Context, t schema.EntityType) {
	c.mu.Lock()
	c.entity = t
	c.session = editSession{}
	c.listing = nil
	c.errMsg = ""
	c.mu.Unlock()

	c.Refresh(ctx)
}

// Refresh re-runs the full listing fetch for the active entity type.
func (c *Controller) Refresh(ctx context.Context) {
	t, gen := c.beginLoad()
	records, err := c.client.List(ctx, t)
	c.applyListing(gen, records, err)
}

// beginLoad transitions to Loading and stamps a new fetch generation.
// Only the response carrying the current generation is honored.
func (c *Controller) beginLoad() (schema.EntityType, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listGen++
	c.state = Loading
	c.errMsg = ""
	return c.entity, c.listGen
}

// applyListing installs a fetch result. A stale generation (the view moved
// on while the request was in flight) is discarded; the caller can tell
// from the return value but typically just drops it.
func (c *Controller) applyListing(gen uint64, records []schema.Record, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.listGen {
		c.log.Debug().Uint64("gen", gen).Uint64("current", c.listGen).
			Msg("dropping stale listing response")
		return false
	}
	if err != nil {
		c.state = Failed
		c.errMsg = fmt.Sprintf("Failed to load data: %v", err)
		return true
	}
	c.state = Loaded
	c.listing = records
	return true
}

// BeginCreate opens a creation form seeded from the entity template,
// discarding any other edit surface.
func (c *Controller) BeginCreate() schema.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	draft := schema.Template(c.entity)
	c.session = editSession{kind: SessionCreating, draft: draft}
	return draft.Clone()
}

// BeginEdit opens an edit form for the listed record with the given
// identifier value. The draft is a copy; the original is kept untouched so
// the update can still be addressed even if the operator edits the
// identifier field itself.
func (c *Controller) BeginEdit(id any) (schema.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.findLocked(id)
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	c.session = editSession{
		kind:     SessionEditing,
		draft:    rec.Clone(),
		original: rec.Clone(),
	}
	return c.session.draft.Clone(), nil
}

// SetField updates one field of the active draft.
func (c *Controller) SetField(field string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.kind == SessionIdle {
		return ErrNoEditSession
	}
	c.session.draft[field] = value
	return nil
}

// Cancel discards the active draft without submitting anything.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = editSession{}
}

// Save normalizes the draft and submits it: create for a creation session,
// update (addressed by the original record's identifier) for an edit
// session. On success the draft is discarded and the full listing is
// re-fetched; on failure the draft and the last good listing both survive,
// and the error message is surfaced. Repeated activation while a save is
// in flight is rejected instead of double-submitting.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.session.kind == SessionIdle {
		c.mu.Unlock()
		return ErrNoEditSession
	}
	if c.session.saving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	c.session.saving = true
	kind := c.session.kind
	t := c.entity
	draft := c.session.draft.Clone()
	original := c.session.original
	c.mu.Unlock()

	rec := normalize.Record(t, draft)

	var err error
	if kind == SessionCreating {
		err = c.client.Create(ctx, t, rec)
	} else {
		id := original[schema.IdentifierField(t)]
		err = c.client.Update(ctx, t, id, rec)
	}

	c.mu.Lock()
	c.session.saving = false
	if err != nil {
		verb := "update"
		if kind == SessionCreating {
			verb = "create"
		}
		c.errMsg = fmt.Sprintf("Failed to %s item: %v", verb, err)
		c.mu.Unlock()
		return err
	}
	c.session = editSession{}
	c.mu.Unlock()

	c.Refresh(ctx)
	return nil
}

// Delete removes the listed record with the given identifier value after
// asking confirm. Declining is a no-op, not an error, and issues no
// request. On success the listing is re-fetched.
func (c *Controller) Delete(ctx context.Context, id any, confirm func(schema.Record) bool) error {
	c.mu.Lock()
	rec := c.findLocked(id)
	t := c.entity
	c.mu.Unlock()
	if rec == nil {
		return ErrRecordNotFound
	}
	if confirm != nil && !confirm(rec.Clone()) {
		return nil
	}

	if err := c.client.Remove(ctx, t, id); err != nil {
		c.mu.Lock()
		c.errMsg = fmt.Sprintf("Failed to delete item: %v", err)
		c.mu.Unlock()
		return err
	}
	c.Refresh(ctx)
	return nil
}

// ExportTable triggers a server-side CSV export of the active table. The
// outcome is surfaced only as a transient status message.
func (c *Controller) ExportTable(ctx context.Context) {
	c.mu.Lock()
	t := c.entity
	c.mu.Unlock()
	c.runExport("Exporting data...", func() error {
		return c.client.ExportOne(ctx, t)
	})
}

// ExportAll triggers a server-side export of every table.
func (c *Controller) ExportAll(ctx context.Context) {
	c.runExport("Exporting all tables...", func() error {
		return c.client.ExportAll(ctx)
	})
}

func (c *Controller) runExport(status string, call func() error) {
	c.setExportStatus(status)
	if err := call(); err != nil {
		c.mu.Lock()
		c.exportStatus = ""
		c.errMsg = fmt.Sprintf("Failed to export data: %v", err)
		c.mu.Unlock()
		return
	}
	c.setExportStatus("Export successful!")

	c.mu.Lock()
	delay := c.exportClearDelay
	if c.statusTimer != nil {
		c.statusTimer.Stop()
	}
	c.statusTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.exportStatus = ""
		c.mu.Unlock()
	})
	c.mu.Unlock()
}

func (c *Controller) setExportStatus(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusTimer != nil {
		c.statusTimer.Stop()
		c.statusTimer = nil
	}
	c.exportStatus = s
}

// findLocked locates a record in the current listing by identifier value.
// Identifier values are compared in string form: numeric ids arrive as
// float64 from JSON but operators type them as text.
func (c *Controller) findLocked(id any) schema.Record {
	idField := schema.IdentifierField(c.entity)
	want := identityKey(id)
	for _, rec := range c.listing {
		if identityKey(rec[idField]) == want {
			return rec
		}
	}
	return nil
}

func identityKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// Fixed notation, matching the grid cells and URL paths: %g would
		// flip seven-digit ids to exponent form and break the lookup.
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}
