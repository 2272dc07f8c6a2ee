package models

import (
	"encoding/json"
	"sort"
	"time"
)

// LessonSet is a set of completed lesson ids. It encodes as a sorted JSON array.
type LessonSet map[string]struct{}

// NewLessonSet builds a set from ids, dropping duplicates.
func NewLessonSet(ids ...string) LessonSet {
	set := make(LessonSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s LessonSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members sorted.
func (s LessonSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON implements json.Marshaler.
func (s LessonSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *LessonSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewLessonSet(ids...)
	return nil
}

// CompletionRecord maps course id to the lessons the user completed in it.
type CompletionRecord map[string]LessonSet

// Completed returns the set for a course, never nil.
func (r CompletionRecord) Completed(courseID string) LessonSet {
	if set, ok := r[courseID]; ok && set != nil {
		return set
	}
	return LessonSet{}
}

// CourseIDs returns the courses with any recorded progress, sorted.
func (r CompletionRecord) CourseIDs() []string {
	ids := make([]string, 0, len(r))
	for id, set := range r {
		if len(set) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Certificate is the proof of completion issued for one (user, course) pair.
type Certificate struct {
	Code        string    `json:"code"`
	CompletedAt time.Time `json:"completedAt"`
}

// CertificateRecord maps course id to the user's certificate. At most one entry per course.
type CertificateRecord map[string]Certificate

// Has reports whether a certificate exists for the course.
func (r CertificateRecord) Has(courseID string) bool {
	_, ok := r[courseID]
	return ok
}

// Merge returns a new record holding r's entries plus the ones in other that r lacks.
// Existing certificates are never replaced.
func (r CertificateRecord) Merge(other CertificateRecord) CertificateRecord {
	merged := make(CertificateRecord, len(r)+len(other))
	for id, cert := range r {
		merged[id] = cert
	}
	for id, cert := range other {
		if _, ok := merged[id]; !ok {
			merged[id] = cert
		}
	}
	return merged
}

// CertificateDetails is what public validation of a code returns.
type CertificateDetails struct {
	Code        string    `json:"code"`
	CourseID    string    `json:"courseId"`
	CourseTitle string    `json:"courseTitle,omitempty"`
	Email       string    `json:"email"`
	StudentName string    `json:"studentName,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// UserLists are the enrolment and favorite course ids of a user.
type UserLists struct {
	MyCourseIDs []string `json:"myCourses"`
	FavoriteIDs []string `json:"favorites"`
}
