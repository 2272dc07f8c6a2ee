// Package curriculum holds the course editor draft and the reducer applying editor commands to it.
package curriculum

import (
	"time"

	"github.com/noah-isme/academy-gateway/internal/models"
)

// AssetState tags the variant held by an AssetRef.
type AssetState string

const (
	AssetNone      AssetState = ""
	AssetPersisted AssetState = "persisted"
	AssetStaged    AssetState = "staged"
	AssetRemoved   AssetState = "removed"
)

// AssetRef is the file behind a cover, lesson video or attachment.
//
//   - Persisted: URL is a stored asset, or an external player URL when External is set.
//   - Staged: FileHandle points at a staged upload, PreviewURL shows it, Replaces names the persisted URL it supersedes.
//   - Removed: URL is the persisted asset the next save must delete.
type AssetRef struct {
	State      AssetState `json:"state,omitempty"`
	URL        string     `json:"url,omitempty"`
	FileHandle string     `json:"fileHandle,omitempty"`
	PreviewURL string     `json:"previewUrl,omitempty"`
	Replaces   string     `json:"replaces,omitempty"`
	External   bool       `json:"external,omitempty"`
}

// Persisted references an already stored asset. An empty url yields no asset.
func Persisted(url string) AssetRef {
	if url == "" {
		return AssetRef{}
	}
	return AssetRef{State: AssetPersisted, URL: url}
}

// Embedded references a video hosted elsewhere. It is never deleted on save.
func Embedded(url string) AssetRef {
	if url == "" {
		return AssetRef{}
	}
	return AssetRef{State: AssetPersisted, URL: url, External: true}
}

// StagedLocal references a staged upload that replaces prior, if prior is persisted.
func StagedLocal(handle, previewURL string, prior AssetRef) AssetRef {
	return AssetRef{State: AssetStaged, FileHandle: handle, PreviewURL: previewURL, Replaces: prior.persistedURL()}
}

// MarkedForRemoval records that url must be deleted on save.
func MarkedForRemoval(url string) AssetRef {
	if url == "" {
		return AssetRef{}
	}
	return AssetRef{State: AssetRemoved, URL: url}
}

// DisplayURL is what the editor shows: the persisted URL or the staged preview.
func (a AssetRef) DisplayURL() string {
	switch a.State {
	case AssetPersisted:
		return a.URL
	case AssetStaged:
		return a.PreviewURL
	default:
		return ""
	}
}

// Cleared is the state after the user removes the asset.
func (a AssetRef) Cleared() AssetRef {
	return MarkedForRemoval(a.persistedURL())
}

func (a AssetRef) persistedURL() string {
	switch a.State {
	case AssetPersisted:
		if a.External {
			return ""
		}
		return a.URL
	case AssetRemoved:
		return a.URL
	case AssetStaged:
		return a.Replaces
	default:
		return ""
	}
}

// EntityKind names what a staged file belongs to.
type EntityKind string

const (
	KindCover      EntityKind = "cover"
	KindVideo      EntityKind = "video"
	KindAttachment EntityKind = "attachment"
)

// EntityRef identifies the owner of a staged file. ID is empty for the cover.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// StagedFile is a file uploaded to the gateway but not yet sent to the backend.
type StagedFile struct {
	Owner       EntityRef `json:"owner"`
	Handle      string    `json:"handle"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
}

// StagedFiles associates staged files with their owning entity, one file per owner.
type StagedFiles []StagedFile

// Get returns the file staged for owner.
func (s StagedFiles) Get(owner EntityRef) (StagedFile, bool) {
	for _, f := range s {
		if f.Owner == owner {
			return f, true
		}
	}
	return StagedFile{}, false
}

// Put returns a copy with file staged for its owner, replacing any earlier one.
func (s StagedFiles) Put(file StagedFile) StagedFiles {
	out := make(StagedFiles, 0, len(s)+1)
	for _, f := range s {
		if f.Owner != file.Owner {
			out = append(out, f)
		}
	}
	return append(out, file)
}

// Remove returns a copy without the file staged for owner.
func (s StagedFiles) Remove(owner EntityRef) StagedFiles {
	out := make(StagedFiles, 0, len(s))
	for _, f := range s {
		if f.Owner != owner {
			out = append(out, f)
		}
	}
	return out
}

// Orphans lists the handles staged in before that after no longer references.
func Orphans(before, after StagedFiles) []string {
	kept := make(map[string]struct{}, len(after))
	for _, f := range after {
		kept[f.Handle] = struct{}{}
	}
	var orphans []string
	for _, f := range before {
		if _, ok := kept[f.Handle]; !ok {
			orphans = append(orphans, f.Handle)
		}
	}
	return orphans
}

// Draft is the editable working copy of a course.
type Draft struct {
	ID          string              `json:"id"`
	CourseID    string              `json:"courseId,omitempty"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category,omitempty"`
	Level       models.CourseLevel  `json:"level,omitempty"`
	Price       *float64            `json:"price,omitempty"`
	Status      models.CourseStatus `json:"status"`
	Cover       AssetRef            `json:"cover"`
	Modules     []DraftModule       `json:"modules"`
	Staged      StagedFiles         `json:"staged"`
	Detached    []Removal           `json:"detached,omitempty"`

	ExpandedModules []string `json:"expandedModules"`
	EditingLessonID string   `json:"editingLessonId,omitempty"`

	CreatorEmail string    `json:"creatorEmail,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DraftModule is a module in the editor.
type DraftModule struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Lessons     []DraftLesson `json:"lessons"`
}

// DraftLesson is a lesson in the editor.
type DraftLesson struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Duration      string            `json:"duration"`
	VideoType     models.VideoType  `json:"videoType"`
	Video         AssetRef          `json:"video"`
	IsFreePreview bool              `json:"isFreePreview,omitempty"`
	Description   string            `json:"description,omitempty"`
	Objectives    []string          `json:"objectives,omitempty"`
	Attachments   []DraftAttachment `json:"attachments,omitempty"`
}

// DraftAttachment is a lesson material in the editor.
type DraftAttachment struct {
	ID   string                `json:"id"`
	Name string                `json:"name"`
	Size string                `json:"size"`
	Type models.AttachmentType `json:"type"`
	File AssetRef              `json:"file"`
}

// Removal is a persisted asset the backend must delete on save.
type Removal struct {
	Owner EntityRef `json:"owner"`
	URL   string    `json:"url"`
}

// IsExpanded reports whether the module is open in the editor.
func (d Draft) IsExpanded(moduleID string) bool {
	for _, id := range d.ExpandedModules {
		if id == moduleID {
			return true
		}
	}
	return false
}

// RemovalIntents lists every persisted asset the next save must delete.
func (d Draft) RemovalIntents() []Removal {
	removals := append([]Removal(nil), d.Detached...)
	if d.Cover.State == AssetRemoved {
		removals = append(removals, Removal{Owner: EntityRef{Kind: KindCover}, URL: d.Cover.URL})
	}
	for _, module := range d.Modules {
		for _, lesson := range module.Lessons {
			if lesson.Video.State == AssetRemoved {
				removals = append(removals, Removal{Owner: EntityRef{Kind: KindVideo, ID: lesson.ID}, URL: lesson.Video.URL})
			}
			for _, att := range lesson.Attachments {
				if att.File.State == AssetRemoved {
					removals = append(removals, Removal{Owner: EntityRef{Kind: KindAttachment, ID: att.ID}, URL: att.File.URL})
				}
			}
		}
	}
	return removals
}
