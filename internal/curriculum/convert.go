package curriculum

import (
	"github.com/noah-isme/academy-gateway/internal/models"
)

// FromCourse opens an existing course for editing. The first module starts expanded.
func FromCourse(draftID string, course models.Course) Draft {
	d := Draft{
		ID:           draftID,
		CourseID:     course.ID,
		Title:        course.Title,
		Description:  course.Description,
		Category:     course.Category,
		Level:        course.Level,
		Status:       course.Status,
		Cover:        Persisted(course.ThumbnailURL),
		Modules:      make([]DraftModule, 0, len(course.Modules)),
		Staged:       StagedFiles{},
		CreatorEmail: course.CreatorEmail,
	}
	if course.Price != nil {
		price := *course.Price
		d.Price = &price
	}
	if d.Status == "" {
		d.Status = models.StatusDraft
	}
	for _, m := range course.Modules {
		dm := DraftModule{ID: m.ID, Title: m.Title, Description: m.Description, Lessons: make([]DraftLesson, 0, len(m.Lessons))}
		for _, l := range m.Lessons {
			dl := DraftLesson{
				ID:            l.ID,
				Title:         l.Title,
				Duration:      l.Duration,
				VideoType:     l.VideoType,
				Video:         Persisted(l.VideoURL),
				IsFreePreview: l.IsFreePreview,
				Description:   l.Description,
				Objectives:    append([]string(nil), l.Objectives...),
			}
			if dl.VideoType == "" {
				dl.VideoType = models.VideoUpload
			}
			if dl.VideoType == models.VideoEmbed {
				dl.Video = Embedded(l.VideoURL)
			}
			for _, a := range l.Attachments {
				dl.Attachments = append(dl.Attachments, DraftAttachment{
					ID: a.ID, Name: a.Name, Size: a.Size, Type: a.Type, File: Persisted(a.URL),
				})
			}
			dm.Lessons = append(dm.Lessons, dl)
		}
		d.Modules = append(d.Modules, dm)
	}
	if len(d.Modules) > 0 {
		d.ExpandedModules = []string{d.Modules[0].ID}
	}
	return d
}

// ToCourse builds the course sent on save. Staged assets carry no URL; the backend fills it from the uploaded file.
// Attachments whose file was removed are left out.
func ToCourse(d Draft) models.Course {
	course := models.Course{
		ID:            d.CourseID,
		Title:         d.Title,
		Description:   d.Description,
		ThumbnailURL:  persistedOnly(d.Cover),
		Modules:       make([]models.Module, 0, len(d.Modules)),
		TotalDuration: TotalDuration(d.Modules),
		Category:      d.Category,
		Level:         d.Level,
		Status:        d.Status,
		CreatorEmail:  d.CreatorEmail,
	}
	if d.Price != nil {
		price := *d.Price
		course.Price = &price
	}
	for _, m := range d.Modules {
		module := models.Module{ID: m.ID, Title: m.Title, Description: m.Description, Lessons: make([]models.Lesson, 0, len(m.Lessons))}
		for _, l := range m.Lessons {
			lesson := models.Lesson{
				ID:            l.ID,
				Title:         l.Title,
				Duration:      l.Duration,
				VideoURL:      persistedOnly(l.Video),
				VideoType:     l.VideoType,
				IsFreePreview: l.IsFreePreview,
				Description:   l.Description,
				Objectives:    l.Objectives,
			}
			for _, a := range l.Attachments {
				if a.File.State == AssetNone || a.File.State == AssetRemoved {
					continue
				}
				lesson.Attachments = append(lesson.Attachments, models.Attachment{
					ID: a.ID, Name: a.Name, URL: persistedOnly(a.File), Size: a.Size, Type: a.Type,
				})
			}
			module.Lessons = append(module.Lessons, lesson)
		}
		course.Modules = append(course.Modules, module)
	}
	return course
}

func persistedOnly(a AssetRef) string {
	if a.State == AssetPersisted {
		return a.URL
	}
	return ""
}
