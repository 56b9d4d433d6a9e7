// Package syncer keeps the lead cache in step with the remote row store and
// routes every mutation through the caller's permissions.
package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"leadtracker_backend/internal/leads/cache"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/phone"
	"leadtracker_backend/platform/sanitize"
	"leadtracker_backend/platform/validator"
)

const (
	DefaultCacheDuration  = 5 * time.Minute
	DefaultLoadingCeiling = time.Second

	msgUnauthorized     = "Unauthorized"
	msgValidationFailed = "validation failed"
)

// RowStore is the remote lead store.
type RowStore interface {
	List(ctx context.Context, q repository.ListQuery) ([]domain.Lead, error)
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	Create(ctx context.Context, params repository.CreateParams) (domain.Lead, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Lead, error)
	Delete(ctx context.Context, id string) error
	CreateNote(ctx context.Context, leadID string, content string) (domain.Note, error)
}

// ReminderScheduler queues a reminder for a lead's next action.
type ReminderScheduler interface {
	ScheduleNextActionReminder(ctx context.Context, lead domain.Lead) error
}

// Options tunes a Client. Zero values fall back to the defaults.
type Options struct {
	CacheDuration  time.Duration
	LoadingCeiling time.Duration
	Now            func() time.Time
	Reminders      ReminderScheduler
}

// Client is the remote sync client of one workspace.
type Client struct {
	rows  RowStore
	cache *cache.Store
	val   *validator.Validator
	log   *logger.Logger
	opts  Options

	mu       sync.Mutex
	inflight *Operation
	loading  atomic.Bool
}

// New creates a Client writing fetched rows into store.
func New(rows RowStore, store *cache.Store, val *validator.Validator, log *logger.Logger, opts Options) *Client {
	if opts.CacheDuration <= 0 {
		opts.CacheDuration = DefaultCacheDuration
	}
	if opts.LoadingCeiling <= 0 {
		opts.LoadingCeiling = DefaultLoadingCeiling
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		rows:  rows,
		cache: store,
		val:   val,
		log:   log.WithComponent("leads.syncer"),
		opts:  opts,
	}
}

// Loading reports whether a fetch is running and its loading ceiling has not elapsed.
func (c *Client) Loading() bool {
	return c.loading.Load()
}

// Start begins a fetch without waiting for it. Unless force is set, a
// non-empty cache fetched within the cache duration is left alone. A fetch
// already in flight is shared. The remote call is detached from ctx's
// cancellation so a caller that stops waiting never loses the result.
func (c *Client) Start(ctx context.Context, req domain.Requester, force bool) *Operation {
	if !force && c.cache.IsFresh(c.opts.Now(), c.opts.CacheDuration) {
		return completedOperation()
	}

	c.mu.Lock()
	if c.inflight != nil {
		op := c.inflight
		c.mu.Unlock()
		return op
	}
	op := newOperation()
	c.inflight = op
	c.loading.Store(true)
	c.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go c.run(runCtx, req, op)
	go c.watchCeiling(op)
	return op
}

// Fetch runs Start and waits for the real completion.
func (c *Client) Fetch(ctx context.Context, req domain.Requester, force bool) error {
	op := c.Start(ctx, req, force)
	select {
	case <-op.Done():
		return op.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) run(ctx context.Context, req domain.Requester, op *Operation) {
	defer func() {
		c.mu.Lock()
		if c.inflight == op {
			c.inflight = nil
		}
		c.mu.Unlock()
		close(op.done)
		c.settle(op)
	}()

	query, err := scopeFor(req)
	if err != nil {
		op.err = err
		return
	}

	rows, err := c.rows.List(ctx, query)
	if err != nil {
		c.log.WithContext(ctx).RemoteFailure("leads.list", err)
		op.err = apperr.Remote("failed to fetch leads", err).WithOp("syncer.Fetch")
		return
	}
	if err := c.cache.Replace(ctx, rows, c.opts.Now()); err != nil {
		op.err = apperr.Wrap(apperr.KindInternal, "failed to store leads", err).WithOp("syncer.Fetch")
	}
}

func (c *Client) watchCeiling(op *Operation) {
	timer := time.NewTimer(c.opts.LoadingCeiling)
	defer timer.Stop()
	select {
	case <-op.Done():
	case <-timer.C:
		c.settle(op)
	}
}

func (c *Client) settle(op *Operation) {
	if !op.settle() {
		return
	}
	c.mu.Lock()
	if c.inflight == nil || c.inflight == op {
		c.loading.Store(false)
	}
	c.mu.Unlock()
}

// scopeFor returns the unscoped query for administrators and the
// creator-or-assignee scope for everyone else.
func scopeFor(req domain.Requester) (repository.ListQuery, error) {
	if req.Admin {
		return repository.ListQuery{}, nil
	}
	if req.UserID == "" {
		return repository.ListQuery{}, apperr.Unauthorized("sign in required")
	}
	return repository.ListQuery{MemberID: req.UserID}, nil
}

// Create validates in, inserts it remotely and makes the stored row visible in the cache.
func (c *Client) Create(ctx context.Context, req domain.Requester, in domain.NewLead) (domain.Lead, error) {
	if req.UserID == "" {
		return domain.Lead{}, apperr.Unauthorized("sign in required")
	}

	in = sanitizeNewLead(in)
	if err := c.val.Struct(in); err != nil {
		return domain.Lead{}, apperr.Validation(msgValidationFailed).WithDetails(err.Error())
	}

	created, err := c.rows.Create(ctx, repository.CreateParams{Lead: in, CreatedBy: req.UserID})
	if err != nil {
		return domain.Lead{}, c.remoteError(ctx, "leads.create", err)
	}

	if err := c.cache.OptimisticInsert(ctx, created); err != nil {
		c.log.WithContext(ctx).Warn("lead cache write failed", "error", err, "leadId", created.ID)
	}
	c.scheduleReminder(ctx, created)
	return created, nil
}

// Update applies patch to the cached row first and then to the remote store.
// A remote failure is returned without rolling back the cached change.
func (c *Client) Update(ctx context.Context, req domain.Requester, id string, patch domain.Patch) (domain.Lead, error) {
	patch = sanitizePatch(patch)
	if patch.IsEmpty() {
		return domain.Lead{}, apperr.Validation("nothing to update")
	}
	if err := c.val.Struct(patch); err != nil {
		return domain.Lead{}, apperr.Validation(msgValidationFailed).WithDetails(err.Error())
	}

	if _, err := c.authorize(ctx, req, id); err != nil {
		return domain.Lead{}, err
	}

	if _, err := c.cache.OptimisticUpdate(ctx, id, patch); err != nil {
		c.log.WithContext(ctx).Warn("lead cache write failed", "error", err, "leadId", id)
	}

	updated, err := c.rows.Update(ctx, id, patch)
	if err != nil {
		return domain.Lead{}, c.remoteError(ctx, "leads.update", err)
	}

	if _, err := c.cache.ReplaceRow(ctx, updated); err != nil {
		c.log.WithContext(ctx).Warn("lead cache write failed", "error", err, "leadId", id)
	}

	if patch.NextActionDate != nil {
		c.scheduleReminder(ctx, updated)
	}
	return updated, nil
}

// Remove deletes a lead. Only administrators, the creator and the assignee
// may delete; anyone else gets Unauthorized and no remote call is issued.
func (c *Client) Remove(ctx context.Context, req domain.Requester, id string) error {
	if _, err := c.authorize(ctx, req, id); err != nil {
		return err
	}

	if err := c.rows.Delete(ctx, id); err != nil {
		return c.remoteError(ctx, "leads.delete", err)
	}

	if _, err := c.cache.OptimisticRemove(ctx, id); err != nil {
		c.log.WithContext(ctx).Warn("lead cache write failed", "error", err, "leadId", id)
	}
	return nil
}

// AddNote stores a note remotely and appends it to the cached row.
func (c *Client) AddNote(ctx context.Context, req domain.Requester, id string, content string) (domain.Note, error) {
	content = sanitize.Text(content)
	if content == "" {
		return domain.Note{}, apperr.Validation("note content is required")
	}

	if _, err := c.authorize(ctx, req, id); err != nil {
		return domain.Note{}, err
	}

	note, err := c.rows.CreateNote(ctx, id, content)
	if err != nil {
		return domain.Note{}, c.remoteError(ctx, "leads.add_note", err)
	}

	if _, err := c.cache.AppendNote(ctx, id, note); err != nil {
		c.log.WithContext(ctx).Warn("lead cache write failed", "error", err, "leadId", id)
	}
	return note, nil
}

// authorize looks the lead up in the cache, falling back to the remote store,
// and checks that req may modify it. A fresh cache of a non-administrator
// holds every lead they may touch, so a miss there is denied without a
// remote read.
func (c *Client) authorize(ctx context.Context, req domain.Requester, id string) (domain.Lead, error) {
	lead, ok := c.cache.Get(id)
	if !ok && !req.Admin && c.cache.IsFresh(c.opts.Now(), c.opts.CacheDuration) {
		c.log.WithContext(ctx).Warn("lead mutation denied", "leadId", id, "userId", req.UserID)
		return domain.Lead{}, apperr.Forbidden(msgUnauthorized)
	}
	if !ok {
		fetched, err := c.rows.GetByID(ctx, id)
		if err != nil {
			return domain.Lead{}, c.remoteError(ctx, "leads.get", err)
		}
		lead = fetched
	}

	if !req.CanModify(lead) {
		c.log.WithContext(ctx).Warn("lead mutation denied", "leadId", id, "userId", req.UserID)
		return domain.Lead{}, apperr.Forbidden(msgUnauthorized)
	}
	return lead, nil
}

func (c *Client) remoteError(ctx context.Context, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(repository.ErrNotFound.Error())
	}
	c.log.WithContext(ctx).RemoteFailure(op, err)
	return apperr.Remote("remote store request failed", err).WithOp(op)
}

func (c *Client) scheduleReminder(ctx context.Context, lead domain.Lead) {
	if c.opts.Reminders == nil {
		return
	}
	if err := c.opts.Reminders.ScheduleNextActionReminder(ctx, lead); err != nil {
		c.log.WithContext(ctx).Warn("next action reminder not scheduled", "error", err, "leadId", lead.ID)
	}
}

func sanitizeNewLead(in domain.NewLead) domain.NewLead {
	in.Name = sanitize.Text(in.Name)
	in.Company = sanitize.TextPtr(in.Company)
	in.Contact = normalizeContact(in.Contact)
	in.ProfileURL = strings.TrimSpace(in.ProfileURL)
	in.Context = sanitize.TextPtr(in.Context)
	if in.Tags != nil {
		in.Tags = sanitize.Tags(in.Tags)
	}
	in.EstimatedValue = sanitize.TextPtr(in.EstimatedValue)
	in.Status = in.Status.Normalize()
	in.NextAction = sanitize.Text(in.NextAction)
	return in
}

func sanitizePatch(p domain.Patch) domain.Patch {
	p.Name = sanitize.TextPtr(p.Name)
	p.Company = sanitize.TextPtr(p.Company)
	if p.Contact != nil {
		contact := normalizeContact(*p.Contact)
		p.Contact = &contact
	}
	if p.ProfileURL != nil {
		url := strings.TrimSpace(*p.ProfileURL)
		p.ProfileURL = &url
	}
	p.Context = sanitize.TextPtr(p.Context)
	if p.Tags != nil {
		p.Tags = sanitize.Tags(p.Tags)
	}
	p.EstimatedValue = sanitize.TextPtr(p.EstimatedValue)
	if p.Status != nil {
		status := p.Status.Normalize()
		p.Status = &status
	}
	p.NextAction = sanitize.TextPtr(p.NextAction)
	return p
}

// normalizeContact formats phone numbers as E.164 and leaves emails alone.
func normalizeContact(contact string) string {
	trimmed := strings.TrimSpace(contact)
	if strings.Contains(trimmed, "@") {
		return trimmed
	}
	return phone.NormalizeE164(trimmed)
}
