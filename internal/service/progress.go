package service

import (
	"math"

	"github.com/noah-isme/academy-gateway/internal/models"
)

// My-courses tabs.
const (
	TabInProgress = "in-progress"
	TabCompleted  = "completed"
	TabFavorites  = "favorites"
)

// TotalLessons counts the lessons across every module of the course.
func TotalLessons(course models.Course) int {
	total := 0
	for _, module := range course.Modules {
		total += len(module.Lessons)
	}
	return total
}

// CompletedLessons counts the course lessons present in the completed set.
// Ids in the set that no longer belong to the course are ignored.
func CompletedLessons(course models.Course, completed models.LessonSet) int {
	count := 0
	for _, module := range course.Modules {
		for _, lesson := range module.Lessons {
			if completed.Has(lesson.ID) {
				count++
			}
		}
	}
	return count
}

// CourseProgress returns round(100*completed/total), or 0 for a course without lessons.
func CourseProgress(course models.Course, completed models.LessonSet) int {
	total := TotalLessons(course)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(CompletedLessons(course, completed)) / float64(total)))
}

// AggregateProgress joins the catalog with the completion record. The input slice and its
// nested modules are left untouched.
func AggregateProgress(courses []models.Course, record models.CompletionRecord) []models.Course {
	out := make([]models.Course, len(courses))
	for i, course := range courses {
		completed := record.Completed(course.ID)
		modules := make([]models.Module, len(course.Modules))
		for m, module := range course.Modules {
			lessons := make([]models.Lesson, len(module.Lessons))
			for l, lesson := range module.Lessons {
				lesson.Completed = completed.Has(lesson.ID)
				lessons[l] = lesson
			}
			module.Lessons = lessons
			modules[m] = module
		}
		course.Modules = modules
		course.Progress = CourseProgress(course, completed)
		out[i] = course
	}
	return out
}

// IsCourseComplete reports whether every lesson of a non-empty course is completed.
func IsCourseComplete(course models.Course, completed models.LessonSet) bool {
	total := TotalLessons(course)
	return total > 0 && CompletedLessons(course, completed) >= total
}

// VisibleCourses filters the catalog for a viewer: published courses are public,
// drafts only reach their creator and archived courses are hidden.
func VisibleCourses(courses []models.Course, viewer models.User) []models.Course {
	out := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		switch course.Status {
		case models.StatusPublished:
			out = append(out, course)
		case models.StatusDraft:
			if viewer.Email != "" && course.CreatorEmail == viewer.Email {
				out = append(out, course)
			}
		}
	}
	return out
}

// FilterMyCourses selects aggregated courses for one of the my-courses tabs.
func FilterMyCourses(courses []models.Course, lists models.UserLists, tab string) []models.Course {
	favorites := make(map[string]struct{}, len(lists.FavoriteIDs))
	for _, id := range lists.FavoriteIDs {
		favorites[id] = struct{}{}
	}

	out := make([]models.Course, 0)
	for _, course := range courses {
		switch tab {
		case TabCompleted:
			if course.Progress == 100 {
				out = append(out, course)
			}
		case TabFavorites:
			if _, ok := favorites[course.ID]; ok {
				out = append(out, course)
			}
		default:
			if course.Progress > 0 && course.Progress < 100 {
				out = append(out, course)
			}
		}
	}
	return out
}

// JustCompleted lists the courses that reached 100% between two aggregations.
func JustCompleted(before, after []models.Course) []string {
	previous := make(map[string]int, len(before))
	for _, course := range before {
		previous[course.ID] = course.Progress
	}
	var ids []string
	for _, course := range after {
		if course.Progress == 100 && previous[course.ID] < 100 {
			ids = append(ids, course.ID)
		}
	}
	return ids
}

// NextLesson returns the first lesson not yet completed, or the first lesson when all are done.
func NextLesson(course models.Course) (models.Lesson, bool) {
	var first *models.Lesson
	for _, module := range course.Modules {
		for i := range module.Lessons {
			lesson := module.Lessons[i]
			if first == nil {
				first = &lesson
			}
			if !lesson.Completed {
				return lesson, true
			}
		}
	}
	if first == nil {
		return models.Lesson{}, false
	}
	return *first, true
}

// FindCourse looks a course up by id.
func FindCourse(courses []models.Course, id string) (models.Course, bool) {
	for _, course := range courses {
		if course.ID == id {
			return course, true
		}
	}
	return models.Course{}, false
}
