package curriculum

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/academy-gateway/internal/models"
)

// Command is one editor action. The set of commands is closed; Apply switches over all of them.
type Command interface {
	command()
}

type AddModule struct {
	ModuleID string `json:"moduleId"`
	Title    string `json:"title"`
}

// RemoveModule deletes a module with its lessons. Confirmed must be set by the user.
type RemoveModule struct {
	ModuleID  string `json:"moduleId" validate:"required"`
	Confirmed bool   `json:"confirmed"`
}

type UpdateModule struct {
	ModuleID    string  `json:"moduleId" validate:"required"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type ToggleModule struct {
	ModuleID string `json:"moduleId" validate:"required"`
}

type AddLesson struct {
	ModuleID string `json:"moduleId" validate:"required"`
	LessonID string `json:"lessonId"`
	Title    string `json:"title"`
}

// LessonPatch lists the lesson fields to overwrite; nil fields are left alone.
type LessonPatch struct {
	Title         *string           `json:"title"`
	Duration      *string           `json:"duration"`
	VideoType     *models.VideoType `json:"videoType" validate:"omitempty,oneof=upload embed"`
	EmbedURL      *string           `json:"embedUrl"`
	IsFreePreview *bool             `json:"isFreePreview"`
	Description   *string           `json:"description"`
	Objectives    *[]string         `json:"objectives"`
}

type UpdateLesson struct {
	ModuleID string      `json:"moduleId" validate:"required"`
	LessonID string      `json:"lessonId" validate:"required"`
	Patch    LessonPatch `json:"patch"`
}

type RemoveLesson struct {
	ModuleID string `json:"moduleId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required"`
}

// ToggleLessonEditor opens a lesson for editing, collapsing any other, or closes it if already open.
type ToggleLessonEditor struct {
	LessonID string `json:"lessonId" validate:"required"`
}

// AddAttachment links an already hosted file to a lesson.
type AddAttachment struct {
	ModuleID     string                `json:"moduleId" validate:"required"`
	LessonID     string                `json:"lessonId" validate:"required"`
	AttachmentID string                `json:"attachmentId"`
	Name         string                `json:"name" validate:"required"`
	URL          string                `json:"url" validate:"required,url"`
	Size         string                `json:"size"`
	Type         models.AttachmentType `json:"type" validate:"omitempty,oneof=pdf archive image other"`
}

type RemoveAttachment struct {
	ModuleID     string `json:"moduleId" validate:"required"`
	LessonID     string `json:"lessonId" validate:"required"`
	AttachmentID string `json:"attachmentId" validate:"required"`
}

type UpdateInfo struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Category    *string              `json:"category"`
	Level       *models.CourseLevel  `json:"level" validate:"omitempty,oneof=Iniciante Intermediário Avançado"`
	Price       *float64             `json:"price" validate:"omitempty,gte=0"`
	ClearPrice  bool                 `json:"clearPrice"`
	Status      *models.CourseStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
}

type RemoveCover struct{}

type RemoveVideo struct {
	ModuleID string `json:"moduleId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required"`
}

// RemoveStagedAttachment clears the file of an attachment, keeping the entry.
type RemoveStagedAttachment struct {
	ModuleID     string `json:"moduleId" validate:"required"`
	LessonID     string `json:"lessonId" validate:"required"`
	AttachmentID string `json:"attachmentId" validate:"required"`
}

// StageCover, StageVideo and StageAttachment are issued by the upload endpoint once the file is stored.
type StageCover struct {
	File       StagedFile
	PreviewURL string
}

type StageVideo struct {
	ModuleID   string
	LessonID   string
	File       StagedFile
	PreviewURL string
}

type StageAttachment struct {
	ModuleID     string
	LessonID     string
	AttachmentID string
	File         StagedFile
	PreviewURL   string
}

// SetLessonDuration back-fills a probed duration. Unknown lessons are ignored.
type SetLessonDuration struct {
	LessonID string
	Duration string
}

func (AddModule) command()              {}
func (RemoveModule) command()           {}
func (UpdateModule) command()           {}
func (ToggleModule) command()           {}
func (AddLesson) command()              {}
func (UpdateLesson) command()           {}
func (RemoveLesson) command()           {}
func (ToggleLessonEditor) command()     {}
func (AddAttachment) command()          {}
func (RemoveAttachment) command()       {}
func (UpdateInfo) command()             {}
func (RemoveCover) command()            {}
func (RemoveVideo) command()            {}
func (RemoveStagedAttachment) command() {}
func (StageCover) command()             {}
func (StageVideo) command()             {}
func (StageAttachment) command()        {}
func (SetLessonDuration) command()      {}

// decoders lists the commands a client may send as JSON. Staging and duration back-fill are internal.
var decoders = map[string]func() Command{
	"addModule":              func() Command { return &AddModule{} },
	"removeModule":           func() Command { return &RemoveModule{} },
	"updateModule":           func() Command { return &UpdateModule{} },
	"toggleModule":           func() Command { return &ToggleModule{} },
	"addLesson":              func() Command { return &AddLesson{} },
	"updateLesson":           func() Command { return &UpdateLesson{} },
	"removeLesson":           func() Command { return &RemoveLesson{} },
	"toggleLessonEditor":     func() Command { return &ToggleLessonEditor{} },
	"addAttachment":          func() Command { return &AddAttachment{} },
	"removeAttachment":       func() Command { return &RemoveAttachment{} },
	"updateInfo":             func() Command { return &UpdateInfo{} },
	"removeCover":            func() Command { return &RemoveCover{} },
	"removeVideo":            func() Command { return &RemoveVideo{} },
	"removeStagedAttachment": func() Command { return &RemoveStagedAttachment{} },
}

// DecodeCommand builds a command from its wire name and JSON payload.
func DecodeCommand(kind string, payload json.RawMessage) (Command, error) {
	factory, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
	}
	ptr := factory()
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, ptr); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return deref(ptr), nil
}

func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *AddModule:
		return *c
	case *RemoveModule:
		return *c
	case *UpdateModule:
		return *c
	case *ToggleModule:
		return *c
	case *AddLesson:
		return *c
	case *UpdateLesson:
		return *c
	case *RemoveLesson:
		return *c
	case *ToggleLessonEditor:
		return *c
	case *AddAttachment:
		return *c
	case *RemoveAttachment:
		return *c
	case *UpdateInfo:
		return *c
	case *RemoveCover:
		return *c
	case *RemoveVideo:
		return *c
	case *RemoveStagedAttachment:
		return *c
	default:
		return cmd
	}
}
