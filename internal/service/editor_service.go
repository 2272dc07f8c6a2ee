package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moby/locker"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/curriculum"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/pkg/academy"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/jobs"
	"github.com/noah-isme/academy-gateway/pkg/media"
	"github.com/noah-isme/academy-gateway/pkg/storage"
)

// JobTypeMediaProbe is the job type of video duration probes.
const JobTypeMediaProbe = "media_probe"

type draftRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type courseWriter interface {
	CreateCourse(ctx context.Context, token string, upload academy.CourseUpload) (*models.Course, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type outlineGenerator interface {
	CourseOutline(ctx context.Context, topic string) (string, error)
}

// EditorConfig holds draft retention, upload limits and the public base of preview links.
type EditorConfig struct {
	DraftTTL    time.Duration
	MaxFileSize int64
	PublicURL   string
	APIPrefix   string
}

// StageTarget names the draft entity an uploaded file belongs to.
type StageTarget struct {
	Kind         curriculum.EntityKind `json:"kind" validate:"required,oneof=cover video attachment"`
	ModuleID     string                `json:"moduleId" validate:"required_unless=Kind cover"`
	LessonID     string                `json:"lessonId" validate:"required_unless=Kind cover"`
	AttachmentID string                `json:"attachmentId"`
}

// FileUpload is a file received from the browser.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// DraftView is a draft with its derived total duration.
type DraftView struct {
	curriculum.Draft
	TotalDuration string `json:"totalDuration"`
}

type probeJob struct {
	SessionID string
	DraftID   string
	LessonID  string
	Handle    string
}

// EditorService hosts curriculum drafts. Drafts live in Redis, staged files on local disk
// until the draft is saved upstream in a single request.
type EditorService struct {
	drafts    draftRepository
	api       courseWriter
	store     *AppStore
	staging   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	probes    jobEnqueuer
	outlines  outlineGenerator
	events    *EventHub
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    EditorConfig
	locks     *locker.Locker
}

// NewEditorService constructs an editor service.
func NewEditorService(drafts draftRepository, api courseWriter, store *AppStore, staging *storage.LocalStorage, signer *storage.SignedURLSigner, events *EventHub, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg EditorConfig) *EditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 72 * time.Hour
	}
	return &EditorService{
		drafts:    drafts,
		api:       api,
		store:     store,
		staging:   staging,
		signer:    signer,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		locks:     locker.New(),
	}
}

// SetProbeQueue wires the queue that runs HandleProbe.
func (s *EditorService) SetProbeQueue(q jobEnqueuer) {
	s.probes = q
}

// SetOutlineGenerator enables SuggestOutline.
func (s *EditorService) SetOutlineGenerator(g outlineGenerator) {
	s.outlines = g
}

// Open starts a draft, empty or copied from one of the instructor's courses.
func (s *EditorService) Open(ctx context.Context, sessionID, courseID string) (*DraftView, error) {
	sess, err := s.authorSession(sessionID)
	if err != nil {
		return nil, err
	}

	draftID := uuid.NewString()
	var draft curriculum.Draft
	if courseID == "" {
		draft = curriculum.NewDraft(draftID, sess.User.Email)
	} else {
		state, err := s.store.Snapshot(sessionID)
		if err != nil {
			return nil, err
		}
		course, ok := FindCourse(state.Courses, courseID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		if course.CreatorEmail != "" && course.CreatorEmail != sess.User.Email {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
		}
		draft = curriculum.FromCourse(draftID, course)
	}

	if err := s.persist(ctx, sessionID, &draft); err != nil {
		return nil, err
	}
	return viewOf(draft), nil
}

// Get returns a draft of the session.
func (s *EditorService) Get(ctx context.Context, sessionID, draftID string) (*DraftView, error) {
	draft, err := s.load(ctx, sessionID, draftID)
	if err != nil {
		return nil, err
	}
	return viewOf(draft), nil
}

// Dispatch applies one editor command to a draft.
func (s *EditorService) Dispatch(ctx context.Context, sessionID, draftID string, cmd curriculum.Command) (*DraftView, error) {
	if _, err := s.authorSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(cmd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid command payload")
	}

	unlock := s.lockDraft(sessionID, draftID)
	defer unlock()

	draft, err := s.load(ctx, sessionID, draftID)
	if err != nil {
		return nil, err
	}
	next, err := s.apply(ctx, sessionID, draft, cmd)
	if err != nil {
		return nil, err
	}
	return viewOf(next), nil
}

// SuggestOutline asks the outline generator for a description based on the draft title
// and writes it into the draft description.
func (s *EditorService) SuggestOutline(ctx context.Context, sessionID, draftID string) (*DraftView, error) {
	if _, err := s.authorSession(sessionID); err != nil {
		return nil, err
	}
	if s.outlines == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "outline generation is not configured")
	}

	unlock := s.lockDraft(sessionID, draftID)
	defer unlock()

	draft, err := s.load(ctx, sessionID, draftID)
	if err != nil {
		return nil, err
	}
	if err := curriculum.Validate(draft); err != nil {
		return nil, mapCurriculumError(err)
	}

	text, err := s.outlines.CourseOutline(ctx, draft.Title)
	if err != nil {
		s.logger.Warn("outline generation failed", zap.String("draft_id", draftID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to generate outline")
	}
	next, err := s.apply(ctx, sessionID, draft, curriculum.UpdateInfo{Description: &text})
	if err != nil {
		return nil, err
	}
	return viewOf(next), nil
}

// Stage stores an uploaded file and points the target entity at a signed preview of it.
// Nothing is sent upstream. Videos are queued for a duration probe.
func (s *EditorService) Stage(ctx context.Context, sessionID, draftID string, target StageTarget, upload FileUpload) (*DraftView, error) {
	if _, err := s.authorSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload target")
	}
	if upload.Reader == nil || upload.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if s.config.MaxFileSize > 0 && upload.Size > s.config.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %s", curriculum.HumanSize(s.config.MaxFileSize)))
	}

	unlock := s.lockDraft(sessionID, draftID)
	defer unlock()

	draft, err := s.load(ctx, sessionID, draftID)
	if err != nil {
		return nil, err
	}

	handle := fmt.Sprintf("%s/%s/%s%s", sessionID, draftID, uuid.NewString(), safeExt(upload.Name))
	written, err := s.staging.SaveStream(handle, upload.Reader, s.config.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %s", curriculum.HumanSize(s.config.MaxFileSize)))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage file")
	}

	file := curriculum.StagedFile{
		Handle:      handle,
		FileName:    filepath.Base(upload.Name),
		ContentType: s.contentType(handle, upload.ContentType),
		Size:        written,
	}
	preview, err := s.previewURL(sessionID, handle)
	if err != nil {
		s.discardFile(handle)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign preview")
	}

	var cmd curriculum.Command
	switch target.Kind {
	case curriculum.KindCover:
		cmd = curriculum.StageCover{File: file, PreviewURL: preview}
	case curriculum.KindVideo:
		cmd = curriculum.StageVideo{ModuleID: target.ModuleID, LessonID: target.LessonID, File: file, PreviewURL: preview}
	default:
		cmd = curriculum.StageAttachment{ModuleID: target.ModuleID, LessonID: target.LessonID, AttachmentID: target.AttachmentID, File: file, PreviewURL: preview}
	}

	next, err := s.apply(ctx, sessionID, draft, cmd)
	if err != nil {
		s.discardFile(handle)
		return nil, err
	}

	if target.Kind == curriculum.KindVideo {
		s.enqueueProbe(probeJob{SessionID: sessionID, DraftID: draftID, LessonID: target.LessonID, Handle: handle})
	}
	return viewOf(next), nil
}

// Preview opens the staged file a signed preview token points to.
func (s *EditorService) Preview(token string) (*os.File, error) {
	_, handle, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "preview link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid preview link")
	}
	file, err := s.staging.Open(handle)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "staged file not found")
	}
	return file, nil
}

// Save validates the draft and submits it upstream in one request with its staged files and
// removal intents. On failure the draft is left as it was so the save can be retried.
func (s *EditorService) Save(ctx context.Context, sessionID, draftID string) (*models.Course, error) {
	sess, err := s.authorSession(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockDraft(sessionID, draftID)
	defer unlock()

	draft, err := s.load(ctx, sessionID, draftID)
	if err != nil {
		return nil, err
	}
	if err := curriculum.Validate(draft); err != nil {
		s.recordSave("invalid")
		return nil, mapCurriculumError(err)
	}

	course := curriculum.ToCourse(draft)
	if course.CreatorEmail == "" {
		course.CreatorEmail = sess.User.Email
	}
	if course.CreatorName == "" {
		course.CreatorName = sess.User.Name
	}

	upload := academy.CourseUpload{Course: course}
	for _, removal := range draft.RemovalIntents() {
		upload.Removals = append(upload.Removals, academy.RemovalIntent{
			Kind:     string(removal.Owner.Kind),
			EntityID: removal.Owner.ID,
			URL:      removal.URL,
		})
	}
	for _, staged := range draft.Staged {
		handle := staged.Handle
		upload.Files = append(upload.Files, academy.UploadFile{
			Field:       uploadField(staged.Owner),
			FileName:    staged.FileName,
			ContentType: staged.ContentType,
			Open: func() (io.ReadCloser, error) {
				return s.staging.Open(handle)
			},
		})
	}

	saved, err := s.api.CreateCourse(ctx, sess.Token, upload)
	if err != nil {
		s.recordSave("failed")
		s.logger.Warn("course save failed", zap.String("draft_id", draftID), zap.Error(err))
		return nil, upstreamError(err, "failed to save course")
	}
	s.recordSave("ok")

	if err := s.staging.DeleteDir(sessionID + "/" + draftID); err != nil {
		s.logger.Warn("failed to clean staged files", zap.String("draft_id", draftID), zap.Error(err))
	}
	if err := s.drafts.Delete(ctx, draftKey(sessionID, draftID)); err != nil {
		s.logger.Warn("failed to delete saved draft", zap.String("draft_id", draftID), zap.Error(err))
	}
	s.store.InvalidateCatalog(ctx, sessionID)
	s.events.Publish(sessionID, EventCourseSaved, saved)
	return saved, nil
}

// Discard drops a draft and its staged files.
func (s *EditorService) Discard(ctx context.Context, sessionID, draftID string) error {
	unlock := s.lockDraft(sessionID, draftID)
	defer unlock()

	if _, err := s.load(ctx, sessionID, draftID); err != nil {
		return err
	}
	if err := s.staging.DeleteDir(sessionID + "/" + draftID); err != nil {
		s.logger.Warn("failed to clean staged files", zap.String("draft_id", draftID), zap.Error(err))
	}
	if err := s.drafts.Delete(ctx, draftKey(sessionID, draftID)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete draft")
	}
	return nil
}

// HandleProbe reads the duration of a staged video and back-fills its lesson.
func (s *EditorService) HandleProbe(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(probeJob)
	if !ok {
		return fmt.Errorf("%w: unexpected payload %T", jobs.ErrPermanent, job.Payload)
	}

	file, err := s.staging.Open(payload.Handle)
	if err != nil {
		s.recordProbe("missing")
		return fmt.Errorf("%w: open staged video: %v", jobs.ErrPermanent, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat staged video: %w", err)
	}
	duration, err := media.ProbeDuration(file, info.Size())
	file.Close()
	if err != nil {
		if errors.Is(err, media.ErrUnsupported) {
			s.recordProbe("unsupported")
			return fmt.Errorf("%w: %v", jobs.ErrPermanent, err)
		}
		s.recordProbe("failed")
		return err
	}

	unlock := s.lockDraft(payload.SessionID, payload.DraftID)
	defer unlock()

	draft, err := s.load(ctx, payload.SessionID, payload.DraftID)
	if err != nil {
		s.recordProbe("stale")
		return fmt.Errorf("%w: %v", jobs.ErrPermanent, err)
	}
	staged, ok := draft.Staged.Get(curriculum.EntityRef{Kind: curriculum.KindVideo, ID: payload.LessonID})
	if !ok || staged.Handle != payload.Handle {
		s.recordProbe("stale")
		return nil
	}
	if _, err := s.apply(ctx, payload.SessionID, draft, curriculum.SetLessonDuration{
		LessonID: payload.LessonID,
		Duration: media.FormatDuration(duration),
	}); err != nil {
		return err
	}
	s.recordProbe("ok")
	return nil
}

// CleanupStaging removes staged files older than the draft TTL.
func (s *EditorService) CleanupStaging() {
	removed, err := s.staging.CleanupOlderThan(s.config.DraftTTL)
	if err != nil {
		s.logger.Warn("staging cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("stale staged files removed", zap.Int("count", len(removed)))
	}
}

func (s *EditorService) apply(ctx context.Context, sessionID string, draft curriculum.Draft, cmd curriculum.Command) (curriculum.Draft, error) {
	next, err := curriculum.Apply(draft, cmd)
	if err != nil {
		return draft, mapCurriculumError(err)
	}
	if err := s.persist(ctx, sessionID, &next); err != nil {
		return draft, err
	}
	for _, handle := range curriculum.Orphans(draft.Staged, next.Staged) {
		s.discardFile(handle)
	}
	s.events.Publish(sessionID, EventDraftUpdated, map[string]string{"draftId": next.ID})
	return next, nil
}

func (s *EditorService) authorSession(sessionID string) (Session, error) {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return Session{}, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	if !sess.User.IsAdmin() {
		return Session{}, appErrors.Clone(appErrors.ErrForbidden, "course editing requires the ADMIN role")
	}
	return sess, nil
}

func (s *EditorService) load(ctx context.Context, sessionID, draftID string) (curriculum.Draft, error) {
	var draft curriculum.Draft
	if err := s.drafts.Get(ctx, draftKey(sessionID, draftID), &draft); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return draft, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return draft, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	return draft, nil
}

func (s *EditorService) persist(ctx context.Context, sessionID string, draft *curriculum.Draft) error {
	draft.UpdatedAt = time.Now().UTC()
	if err := s.drafts.Set(ctx, draftKey(sessionID, draft.ID), draft, s.config.DraftTTL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store draft")
	}
	return nil
}

func (s *EditorService) previewURL(sessionID, handle string) (string, error) {
	token, _, err := s.signer.Generate(sessionID, handle)
	if err != nil {
		return "", err
	}
	return s.config.PublicURL + s.config.APIPrefix + "/drafts/previews/" + token, nil
}

func (s *EditorService) contentType(handle, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	file, err := s.staging.Open(handle)
	if err != nil {
		return "application/octet-stream"
	}
	defer file.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	return http.DetectContentType(head[:n])
}

func (s *EditorService) enqueueProbe(payload probeJob) {
	if s.probes == nil {
		return
	}
	err := s.probes.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeMediaProbe, Payload: payload})
	if err != nil {
		s.recordProbe("dropped")
		s.logger.Warn("media probe not queued", zap.String("lesson_id", payload.LessonID), zap.Error(err))
	}
}

func (s *EditorService) discardFile(handle string) {
	if err := s.staging.Delete(handle); err != nil {
		s.logger.Debug("staged file not removed", zap.String("handle", handle), zap.Error(err))
	}
}

func (s *EditorService) recordSave(result string) {
	if s.metrics != nil {
		s.metrics.RecordDraftSave(result)
	}
}

func (s *EditorService) recordProbe(result string) {
	if s.metrics != nil {
		s.metrics.RecordMediaProbe(result)
	}
}

func viewOf(d curriculum.Draft) *DraftView {
	return &DraftView{Draft: d, TotalDuration: curriculum.TotalDuration(d.Modules)}
}

func draftKey(sessionID, draftID string) string {
	return "drafts:" + sessionID + ":" + draftID
}

func uploadField(owner curriculum.EntityRef) string {
	if owner.ID == "" {
		return string(owner.Kind)
	}
	return string(owner.Kind) + ":" + owner.ID
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}

func mapCurriculumError(err error) error {
	switch {
	case errors.Is(err, curriculum.ErrConfirmationRequired):
		return appErrors.Wrap(err, appErrors.ErrConfirmationRequired.Code, appErrors.ErrConfirmationRequired.Status, err.Error())
	case errors.Is(err, curriculum.ErrModuleNotFound), errors.Is(err, curriculum.ErrLessonNotFound), errors.Is(err, curriculum.ErrAttachmentNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, err.Error())
	case errors.Is(err, curriculum.ErrTitleRequired), errors.Is(err, curriculum.ErrUnknownCommand):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply command")
	}
}

// lockDraft serializes work on one draft and returns the matching unlock.
func (s *EditorService) lockDraft(sessionID, draftID string) func() {
	key := draftKey(sessionID, draftID)
	s.locks.Lock(key)
	return func() { _ = s.locks.Unlock(key) }
}
