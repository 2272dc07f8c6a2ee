package models

// CourseLevel is the difficulty label shown in the catalog.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Iniciante"
	LevelIntermediate CourseLevel = "Intermediário"
	LevelAdvanced     CourseLevel = "Avançado"
)

// CourseStatus drives catalog visibility.
type CourseStatus string

const (
	StatusDraft     CourseStatus = "draft"
	StatusPublished CourseStatus = "published"
	StatusArchived  CourseStatus = "archived"
)

// VideoType tells the player how to embed a lesson video.
type VideoType string

const (
	VideoUpload VideoType = "upload"
	VideoEmbed  VideoType = "embed"
)

// AttachmentType only selects the icon shown next to an attachment.
type AttachmentType string

const (
	AttachmentPDF     AttachmentType = "pdf"
	AttachmentArchive AttachmentType = "archive"
	AttachmentImage   AttachmentType = "image"
	AttachmentOther   AttachmentType = "other"
)

// Course is a catalog entry. Progress is relative to the viewing user.
type Course struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	ThumbnailURL  string       `json:"thumbnailUrl"`
	Modules       []Module     `json:"modules"`
	TotalDuration string       `json:"totalDuration"`
	Progress      int          `json:"progress"`
	Category      string       `json:"category,omitempty"`
	Level         CourseLevel  `json:"level,omitempty"`
	Status        CourseStatus `json:"status"`
	Price         *float64     `json:"price,omitempty"`
	CreatorEmail  string       `json:"creatorEmail,omitempty"`
	CreatorName   string       `json:"creatorName,omitempty"`
}

// Module groups lessons; order is slice order.
type Module struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson is a single video lesson. Completed is a join against the viewer's completion record.
type Lesson struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Duration      string       `json:"duration"`
	VideoURL      string       `json:"videoUrl,omitempty"`
	VideoType     VideoType    `json:"videoType,omitempty"`
	IsFreePreview bool         `json:"isFreePreview,omitempty"`
	Description   string       `json:"description,omitempty"`
	Objectives    []string     `json:"objectives,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	Completed     bool         `json:"completed"`
}

// Attachment is a downloadable lesson material.
type Attachment struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	URL  string         `json:"url"`
	Size string         `json:"size"`
	Type AttachmentType `json:"type"`
}

// FindLesson returns the lesson with the given id and whether it exists.
func (c *Course) FindLesson(lessonID string) (Lesson, bool) {
	for _, module := range c.Modules {
		for _, lesson := range module.Lessons {
			if lesson.ID == lessonID {
				return lesson, true
			}
		}
	}
	return Lesson{}, false
}

// AttachmentTypeFor picks the icon tag for a file name or MIME type.
func AttachmentTypeFor(name, mimeType string) AttachmentType {
	switch {
	case mimeType == "application/pdf" || hasSuffixFold(name, ".pdf"):
		return AttachmentPDF
	case hasPrefixFold(mimeType, "image/"):
		return AttachmentImage
	case mimeType == "application/zip" || mimeType == "application/x-gzip" ||
		hasSuffixFold(name, ".zip") || hasSuffixFold(name, ".rar") || hasSuffixFold(name, ".7z"):
		return AttachmentArchive
	default:
		return AttachmentOther
	}
}
