package models

import "time"

// LessonQuestion is a viewer question posted under a lesson, with the instructor's answer once given.
type LessonQuestion struct {
	ID         string     `json:"id"`
	CourseID   string     `json:"courseId"`
	LessonID   string     `json:"lessonId"`
	AuthorName string     `json:"authorName"`
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"createdAt"`
	Answer     string     `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

// AskQuestionRequest is the body of a new lesson question.
type AskQuestionRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}
