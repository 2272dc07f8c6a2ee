package academy

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/academy-gateway/internal/models"
)

func questionsPath(courseID, lessonID string) string {
	return "/api/academy/courses/" + url.PathEscape(courseID) + "/lessons/" + url.PathEscape(lessonID) + "/questions"
}

// FetchQuestions returns the questions posted under a lesson, oldest first.
func (c *Client) FetchQuestions(ctx context.Context, token, courseID, lessonID string) ([]models.LessonQuestion, error) {
	var out []models.LessonQuestion
	if err := c.doJSON(ctx, "fetch_questions", http.MethodGet, questionsPath(courseID, lessonID), token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.LessonQuestion{}
	}
	return out, nil
}

// AskQuestion posts a question under a lesson and returns it as stored.
func (c *Client) AskQuestion(ctx context.Context, token, courseID, lessonID, text string) (*models.LessonQuestion, error) {
	in := struct {
		Texto string `json:"texto"`
	}{text}

	var out models.LessonQuestion
	if err := c.doJSON(ctx, "ask_question", http.MethodPost, questionsPath(courseID, lessonID), token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
