package curriculum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/academy-gateway/internal/models"
)

var (
	ErrConfirmationRequired = errors.New("removing a module requires confirmation")
	ErrModuleNotFound       = errors.New("module not found")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrAttachmentNotFound   = errors.New("attachment not found")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrTitleRequired        = errors.New("course title is required")
)

const (
	DefaultLessonTitle    = "Nova Aula"
	DefaultLessonDuration = "05:00"
	FirstModuleTitle      = "Introdução"
)

// NewDraft returns an empty course draft with one expanded module.
func NewDraft(draftID, creatorEmail string) Draft {
	first := DraftModule{ID: uuid.NewString(), Title: FirstModuleTitle, Lessons: []DraftLesson{}}
	return Draft{
		ID:              draftID,
		Status:          models.StatusDraft,
		Level:           models.LevelBeginner,
		Modules:         []DraftModule{first},
		Staged:          StagedFiles{},
		ExpandedModules: []string{first.ID},
		CreatorEmail:    creatorEmail,
	}
}

// Apply returns the draft produced by cmd. d is never modified; unchanged branches may be shared.
func Apply(d Draft, cmd Command) (Draft, error) {
	switch c := cmd.(type) {
	case AddModule:
		return addModule(d, c), nil
	case RemoveModule:
		return removeModule(d, c)
	case UpdateModule:
		return updateModule(d, c.ModuleID, func(m DraftModule) (DraftModule, error) {
			if c.Title != nil {
				m.Title = *c.Title
			}
			if c.Description != nil {
				m.Description = *c.Description
			}
			return m, nil
		})
	case ToggleModule:
		if _, ok := findModule(d, c.ModuleID); !ok {
			return d, ErrModuleNotFound
		}
		d.ExpandedModules = toggleID(d.ExpandedModules, c.ModuleID)
		return d, nil
	case AddLesson:
		return addLesson(d, c)
	case UpdateLesson:
		return updateLesson(d, c)
	case RemoveLesson:
		return removeLesson(d, c)
	case ToggleLessonEditor:
		if d.EditingLessonID == c.LessonID {
			d.EditingLessonID = ""
			return d, nil
		}
		if _, _, ok := findLesson(d, c.LessonID); !ok {
			return d, ErrLessonNotFound
		}
		d.EditingLessonID = c.LessonID
		return d, nil
	case AddAttachment:
		return addAttachment(d, c)
	case RemoveAttachment:
		return removeAttachment(d, c)
	case UpdateInfo:
		return updateInfo(d, c), nil
	case StageCover:
		d.Cover = StagedLocal(c.File.Handle, c.PreviewURL, d.Cover)
		d.Staged = d.Staged.Put(withOwner(c.File, EntityRef{Kind: KindCover}))
		return d, nil
	case RemoveCover:
		d.Cover = d.Cover.Cleared()
		d.Staged = d.Staged.Remove(EntityRef{Kind: KindCover})
		return d, nil
	case StageVideo:
		return stageVideo(d, c)
	case RemoveVideo:
		return updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
			l.Video = l.Video.Cleared()
			return l, nil
		}, func(d Draft) Draft {
			d.Staged = d.Staged.Remove(EntityRef{Kind: KindVideo, ID: c.LessonID})
			return d
		})
	case StageAttachment:
		return stageAttachment(d, c)
	case RemoveStagedAttachment:
		return updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
			return withAttachment(l, c.AttachmentID, func(a DraftAttachment) DraftAttachment {
				a.File = a.File.Cleared()
				return a
			})
		}, func(d Draft) Draft {
			d.Staged = d.Staged.Remove(EntityRef{Kind: KindAttachment, ID: c.AttachmentID})
			return d
		})
	case SetLessonDuration:
		return setLessonDuration(d, c), nil
	default:
		return d, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// Validate checks the draft can be saved.
func Validate(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

func addModule(d Draft, c AddModule) Draft {
	id := c.ModuleID
	if id == "" {
		id = uuid.NewString()
	}
	title := c.Title
	if title == "" {
		title = fmt.Sprintf("Seção %d: Novo Módulo", len(d.Modules)+1)
	}
	modules := make([]DraftModule, len(d.Modules), len(d.Modules)+1)
	copy(modules, d.Modules)
	d.Modules = append(modules, DraftModule{ID: id, Title: title, Lessons: []DraftLesson{}})
	d.ExpandedModules = withID(d.ExpandedModules, id)
	return d
}

func removeModule(d Draft, c RemoveModule) (Draft, error) {
	idx, ok := findModule(d, c.ModuleID)
	if !ok {
		return d, ErrModuleNotFound
	}
	if !c.Confirmed {
		return d, ErrConfirmationRequired
	}
	removed := d.Modules[idx]
	modules := make([]DraftModule, 0, len(d.Modules)-1)
	modules = append(modules, d.Modules[:idx]...)
	d.Modules = append(modules, d.Modules[idx+1:]...)
	d.ExpandedModules = withoutID(d.ExpandedModules, c.ModuleID)
	for _, lesson := range removed.Lessons {
		d = detachLesson(d, lesson)
	}
	return d, nil
}

func addLesson(d Draft, c AddLesson) (Draft, error) {
	id := c.LessonID
	if id == "" {
		id = uuid.NewString()
	}
	title := c.Title
	if title == "" {
		title = DefaultLessonTitle
	}
	d, err := updateModule(d, c.ModuleID, func(m DraftModule) (DraftModule, error) {
		lessons := make([]DraftLesson, len(m.Lessons), len(m.Lessons)+1)
		copy(lessons, m.Lessons)
		m.Lessons = append(lessons, DraftLesson{
			ID:        id,
			Title:     title,
			Duration:  DefaultLessonDuration,
			VideoType: models.VideoUpload,
		})
		return m, nil
	})
	if err != nil {
		return d, err
	}
	d.EditingLessonID = id
	return d, nil
}

func updateLesson(d Draft, c UpdateLesson) (Draft, error) {
	p := c.Patch
	dropStaged := false
	var superseded AssetRef
	d, err := updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
		if p.Title != nil {
			l.Title = *p.Title
		}
		if p.Duration != nil {
			l.Duration = *p.Duration
		}
		if p.VideoType != nil {
			l.VideoType = *p.VideoType
		}
		if p.EmbedURL != nil {
			dropStaged = l.Video.State == AssetStaged
			if *p.EmbedURL == "" {
				l.Video = l.Video.Cleared()
			} else {
				superseded = l.Video
				l.Video = Embedded(*p.EmbedURL)
				l.VideoType = models.VideoEmbed
			}
		}
		if p.IsFreePreview != nil {
			l.IsFreePreview = *p.IsFreePreview
		}
		if p.Description != nil {
			l.Description = *p.Description
		}
		if p.Objectives != nil {
			l.Objectives = append([]string(nil), (*p.Objectives)...)
		}
		return l, nil
	}, nil)
	if err != nil {
		return d, err
	}
	owner := EntityRef{Kind: KindVideo, ID: c.LessonID}
	if superseded.persistedURL() != "" {
		d = detachAsset(d, owner, superseded)
	} else if dropStaged {
		d.Staged = d.Staged.Remove(owner)
	}
	return d, nil
}

func removeLesson(d Draft, c RemoveLesson) (Draft, error) {
	var removed DraftLesson
	d, err := updateModule(d, c.ModuleID, func(m DraftModule) (DraftModule, error) {
		idx := -1
		for i, l := range m.Lessons {
			if l.ID == c.LessonID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return m, ErrLessonNotFound
		}
		removed = m.Lessons[idx]
		lessons := make([]DraftLesson, 0, len(m.Lessons)-1)
		lessons = append(lessons, m.Lessons[:idx]...)
		m.Lessons = append(lessons, m.Lessons[idx+1:]...)
		return m, nil
	})
	if err != nil {
		return d, err
	}
	return detachLesson(d, removed), nil
}

func addAttachment(d Draft, c AddAttachment) (Draft, error) {
	id := c.AttachmentID
	if id == "" {
		id = uuid.NewString()
	}
	kind := c.Type
	if kind == "" {
		kind = models.AttachmentTypeFor(c.Name, "")
	}
	return updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
		l.Attachments = appendAttachment(l.Attachments, DraftAttachment{
			ID:   id,
			Name: c.Name,
			Size: c.Size,
			Type: kind,
			File: Persisted(c.URL),
		})
		return l, nil
	}, nil)
}

func removeAttachment(d Draft, c RemoveAttachment) (Draft, error) {
	var removed DraftAttachment
	d, err := updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
		idx := attachmentIndex(l.Attachments, c.AttachmentID)
		if idx < 0 {
			return l, ErrAttachmentNotFound
		}
		removed = l.Attachments[idx]
		attachments := make([]DraftAttachment, 0, len(l.Attachments)-1)
		attachments = append(attachments, l.Attachments[:idx]...)
		l.Attachments = append(attachments, l.Attachments[idx+1:]...)
		return l, nil
	}, nil)
	if err != nil {
		return d, err
	}
	return detachAsset(d, EntityRef{Kind: KindAttachment, ID: removed.ID}, removed.File), nil
}

func updateInfo(d Draft, c UpdateInfo) Draft {
	if c.Title != nil {
		d.Title = *c.Title
	}
	if c.Description != nil {
		d.Description = *c.Description
	}
	if c.Category != nil {
		d.Category = *c.Category
	}
	if c.Level != nil {
		d.Level = *c.Level
	}
	if c.ClearPrice {
		d.Price = nil
	} else if c.Price != nil {
		price := *c.Price
		d.Price = &price
	}
	if c.Status != nil {
		d.Status = *c.Status
	}
	return d
}

func stageVideo(d Draft, c StageVideo) (Draft, error) {
	owner := EntityRef{Kind: KindVideo, ID: c.LessonID}
	return updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
		l.Video = StagedLocal(c.File.Handle, c.PreviewURL, l.Video)
		l.VideoType = models.VideoUpload
		return l, nil
	}, func(d Draft) Draft {
		d.Staged = d.Staged.Put(withOwner(c.File, owner))
		return d
	})
}

func stageAttachment(d Draft, c StageAttachment) (Draft, error) {
	id := c.AttachmentID
	if id == "" {
		id = uuid.NewString()
	}
	owner := EntityRef{Kind: KindAttachment, ID: id}
	return updateLessonIn(d, c.ModuleID, c.LessonID, func(l DraftLesson) (DraftLesson, error) {
		idx := attachmentIndex(l.Attachments, id)
		att := DraftAttachment{ID: id}
		if idx >= 0 {
			att = l.Attachments[idx]
		}
		att.Name = c.File.FileName
		att.Size = HumanSize(c.File.Size)
		att.Type = models.AttachmentTypeFor(c.File.FileName, c.File.ContentType)
		att.File = StagedLocal(c.File.Handle, c.PreviewURL, att.File)
		l.Attachments = appendAttachment(l.Attachments, att)
		return l, nil
	}, func(d Draft) Draft {
		d.Staged = d.Staged.Put(withOwner(c.File, owner))
		return d
	})
}

func setLessonDuration(d Draft, c SetLessonDuration) Draft {
	moduleIdx, lessonIdx, ok := findLesson(d, c.LessonID)
	if !ok {
		return d
	}
	modules := make([]DraftModule, len(d.Modules))
	copy(modules, d.Modules)
	lessons := make([]DraftLesson, len(modules[moduleIdx].Lessons))
	copy(lessons, modules[moduleIdx].Lessons)
	lessons[lessonIdx].Duration = c.Duration
	modules[moduleIdx].Lessons = lessons
	d.Modules = modules
	return d
}

// detachLesson drops the staged files of a removed lesson and records removals for its persisted assets.
func detachLesson(d Draft, lesson DraftLesson) Draft {
	d = detachAsset(d, EntityRef{Kind: KindVideo, ID: lesson.ID}, lesson.Video)
	for _, att := range lesson.Attachments {
		d = detachAsset(d, EntityRef{Kind: KindAttachment, ID: att.ID}, att.File)
	}
	if d.EditingLessonID == lesson.ID {
		d.EditingLessonID = ""
	}
	return d
}

func detachAsset(d Draft, owner EntityRef, asset AssetRef) Draft {
	d.Staged = d.Staged.Remove(owner)
	if url := asset.persistedURL(); url != "" {
		detached := make([]Removal, len(d.Detached), len(d.Detached)+1)
		copy(detached, d.Detached)
		d.Detached = append(detached, Removal{Owner: owner, URL: url})
	}
	return d
}

func updateModule(d Draft, moduleID string, fn func(DraftModule) (DraftModule, error)) (Draft, error) {
	idx, ok := findModule(d, moduleID)
	if !ok {
		return d, ErrModuleNotFound
	}
	updated, err := fn(d.Modules[idx])
	if err != nil {
		return d, err
	}
	modules := make([]DraftModule, len(d.Modules))
	copy(modules, d.Modules)
	modules[idx] = updated
	d.Modules = modules
	return d, nil
}

// updateLessonIn rewrites one lesson, then lets after adjust draft-level fields on success.
func updateLessonIn(d Draft, moduleID, lessonID string, fn func(DraftLesson) (DraftLesson, error), after func(Draft) Draft) (Draft, error) {
	next, err := updateModule(d, moduleID, func(m DraftModule) (DraftModule, error) {
		for i, l := range m.Lessons {
			if l.ID != lessonID {
				continue
			}
			updated, err := fn(l)
			if err != nil {
				return m, err
			}
			lessons := make([]DraftLesson, len(m.Lessons))
			copy(lessons, m.Lessons)
			lessons[i] = updated
			m.Lessons = lessons
			return m, nil
		}
		return m, ErrLessonNotFound
	})
	if err != nil {
		return d, err
	}
	if after != nil {
		next = after(next)
	}
	return next, nil
}

func withAttachment(l DraftLesson, attachmentID string, fn func(DraftAttachment) DraftAttachment) (DraftLesson, error) {
	idx := attachmentIndex(l.Attachments, attachmentID)
	if idx < 0 {
		return l, ErrAttachmentNotFound
	}
	attachments := make([]DraftAttachment, len(l.Attachments))
	copy(attachments, l.Attachments)
	attachments[idx] = fn(attachments[idx])
	l.Attachments = attachments
	return l, nil
}

// appendAttachment replaces the attachment with the same id or appends it, on a fresh slice.
func appendAttachment(list []DraftAttachment, att DraftAttachment) []DraftAttachment {
	out := make([]DraftAttachment, 0, len(list)+1)
	replaced := false
	for _, a := range list {
		if a.ID == att.ID {
			out = append(out, att)
			replaced = true
			continue
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, att)
	}
	return out
}

func attachmentIndex(list []DraftAttachment, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func findModule(d Draft, moduleID string) (int, bool) {
	for i, m := range d.Modules {
		if m.ID == moduleID {
			return i, true
		}
	}
	return -1, false
}

func findLesson(d Draft, lessonID string) (int, int, bool) {
	for i, m := range d.Modules {
		for j, l := range m.Lessons {
			if l.ID == lessonID {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

func withOwner(file StagedFile, owner EntityRef) StagedFile {
	file.Owner = owner
	return file
}

func toggleID(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return withoutID(ids, id)
		}
	}
	return withID(ids, id)
}

func withID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func withoutID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
