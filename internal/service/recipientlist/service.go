package recipientlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/leadops/internal/domain"
	"github.com/ignite/leadops/internal/personalize"
	"github.com/ignite/leadops/internal/pkg/distlock"
	"github.com/ignite/leadops/internal/pkg/logger"
	"github.com/ignite/leadops/internal/recipients"
)

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	CacheTTL     time.Duration
	PreviewLimit int
	Now          func() time.Time
}

// Service implements recipient list business logic. It is safe for
// concurrent use.
type Service struct {
	repo    Repository
	cache   Cache
	archive Archive
	locks   distlock.Factory
	engine  *personalize.Engine
	opts    Options
}

// NewService creates a recipient list service. archive may be nil, in which
// case raw uploads are not kept.
func NewService(repo Repository, cache Cache, archive Archive, locks distlock.Factory, opts Options) *Service {
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		archive: archive,
		locks:   locks,
		engine:  personalize.NewEngine(),
		opts:    opts,
	}
}

// Preview parses text without storing anything.
func (s *Service) Preview(text string) (*recipients.Result, error) {
	res, err := recipients.Parse(text)
	if err != nil {
		logger.Debug("recipient preview rejected", "reason", err)
		return nil, err
	}
	logSkipped("", res.Skipped)
	return res, nil
}

// ImportRequest describes a list to create from raw text.
type ImportRequest struct {
	OrganizationID string
	Name           string
	Source         domain.ListSource
	Filename       string
	Content        string
}

func (r *ImportRequest) normalize() error {
	r.OrganizationID = strings.TrimSpace(r.OrganizationID)
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" && r.Filename != "" {
		base := filepath.Base(r.Filename)
		r.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if r.Source == "" {
		r.Source = domain.SourcePaste
		if r.Filename != "" {
			r.Source = domain.SourceUpload
		}
	}
	switch {
	case r.OrganizationID == "":
		return fmt.Errorf("%w: organization is required", ErrInvalidRequest)
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case !r.Source.Valid():
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, r.Source)
	}
	return nil
}

// Import parses req.Content and stores the result as a new list. Structural
// parse failures are returned as *recipients.ParseError. Only one import
// per organization and list name runs at a time; a concurrent attempt gets
// ErrLocked.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*domain.RecipientList, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	res, err := recipients.Parse(req.Content)
	if err != nil {
		logger.Info("recipient import rejected", "org_id", req.OrganizationID, "list", req.Name, "reason", err)
		return nil, err
	}

	lock := s.locks(importLockKey(req.OrganizationID, req.Name))
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release import lock failed", "list", req.Name, "error", err)
		}
	}()

	now := s.opts.Now().UTC()
	list := buildList(req, res, now)

	if s.archive != nil {
		key := archiveKey(list, now)
		if err := s.archive.Put(ctx, key, []byte(req.Content), contentType(res.Delimiter)); err != nil {
			return nil, fmt.Errorf("archive upload: %w", err)
		}
		list.ArchiveKey = key
	}

	if err := list.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.repo.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("create recipient list: %w", err)
	}
	s.cacheList(ctx, list)

	logger.Info("recipient list imported",
		"org_id", list.OrganizationID,
		"list_id", list.ID,
		"recipient_count", list.RecipientCount,
		"skipped", list.SkippedCount,
		"delimiter", fmt.Sprintf("%q", list.Delimiter),
	)
	logSkipped(list.ID, res.Skipped)
	return list, nil
}

// Get returns a list with its recipients, preferring the cache.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.RecipientList, error) {
	if list, ok := s.cachedList(ctx, orgID, id); ok {
		return list, nil
	}
	list, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	s.cacheList(ctx, list)
	return list, nil
}

// List returns list summaries for an organization.
func (s *Service) List(ctx context.Context, orgID string, filter ListFilter) ([]domain.RecipientList, int, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, orgID, filter)
}

// Delete removes a list and evicts it from the cache.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey(orgID, id)); err != nil {
		logger.Warn("evict recipient list failed", "list_id", id, "error", err)
	}
	logger.Info("recipient list deleted", "org_id", orgID, "list_id", id)
	return nil
}

// RawUpload returns the archived source text of a list.
func (s *Service) RawUpload(ctx context.Context, orgID, id string) ([]byte, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	list, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if list.ArchiveKey == "" {
		return nil, ErrNoArchive
	}
	return s.archive.Get(ctx, list.ArchiveKey)
}

// RenderRequest asks for a merge preview of the first Limit recipients.
type RenderRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Limit   int    `json:"limit"`
}

// RenderedMessage is one personalised subject/body pair.
type RenderedMessage struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Render personalises the request templates for the first recipients of a list.
func (s *Service) Render(ctx context.Context, orgID, id string, req RenderRequest) ([]RenderedMessage, error) {
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("%w: subject or body is required", ErrInvalidRequest)
	}
	for _, src := range []string{req.Subject, req.Body} {
		if err := s.engine.Validate(src); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	list, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.PreviewLimit
	}
	if limit > len(list.Recipients) {
		limit = len(list.Recipients)
	}

	out := make([]RenderedMessage, 0, limit)
	for _, r := range list.Recipients[:limit] {
		pr := personalize.Recipient{Email: r.Email, Name: r.Name}
		subject, err := s.engine.Render(req.Subject, pr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		body, err := s.engine.Render(req.Body, pr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		out = append(out, RenderedMessage{Email: r.Email, Name: r.Name, Subject: subject, Body: body})
	}
	return out, nil
}

func buildList(req ImportRequest, res *recipients.Result, now time.Time) *domain.RecipientList {
	list := &domain.RecipientList{
		ID:             uuid.New().String(),
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Source:         req.Source,
		Filename:       req.Filename,
		Delimiter:      res.Delimiter,
		RecipientCount: len(res.Recipients),
		SkippedCount:   len(res.Skipped),
		Recipients:     make([]domain.Recipient, 0, len(res.Recipients)),
		Skipped:        make([]domain.RowIssue, 0, len(res.Skipped)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, r := range res.Recipients {
		list.Recipients = append(list.Recipients, domain.Recipient{Email: r.Email, Name: r.Name})
	}
	for _, e := range res.Skipped {
		list.Skipped = append(list.Skipped, domain.RowIssue{Row: e.Row, Value: e.Value, Reason: e.Reason})
	}
	return list
}

func (s *Service) cachedList(ctx context.Context, orgID, id string) (*domain.RecipientList, bool) {
	data, ok, err := s.cache.Get(ctx, cacheKey(orgID, id))
	if err != nil {
		logger.Warn("recipient cache read failed", "list_id", id, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var list domain.RecipientList
	if err := json.Unmarshal(data, &list); err != nil {
		logger.Warn("recipient cache entry corrupt", "list_id", id, "error", err)
		return nil, false
	}
	return &list, true
}

// cacheList is best effort: the repository is the source of truth.
func (s *Service) cacheList(ctx context.Context, list *domain.RecipientList) {
	data, err := json.Marshal(list)
	if err != nil {
		logger.Warn("recipient cache encode failed", "list_id", list.ID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKey(list.OrganizationID, list.ID), data, s.opts.CacheTTL); err != nil {
		logger.Warn("recipient cache write failed", "list_id", list.ID, "error", err)
	}
}

func logSkipped(listID string, skipped []recipients.RowError) {
	for _, e := range skipped {
		logger.Debug("recipient row skipped", "list_id", listID, "row", e.Row, "email", e.Value)
	}
}

func cacheKey(orgID, id string) string { return "list:" + orgID + ":" + id }

func importLockKey(orgID, name string) string {
	return "recipient-import:" + orgID + ":" + strings.ToLower(name)
}

func archiveKey(list *domain.RecipientList, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(list.Filename))
	if ext == "" {
		ext = extForDelimiter(list.Delimiter)
	}
	return fmt.Sprintf("uploads/%s/%s/%s%s", list.OrganizationID, now.Format("2006/01/02"), list.ID, ext)
}

func extForDelimiter(d string) string {
	if d == "\t" {
		return ".tsv"
	}
	return ".csv"
}

func contentType(delim string) string {
	if delim == "\t" {
		return "text/tab-separated-values"
	}
	return "text/csv"
}

// IsNotFound reports whether err means the list does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
