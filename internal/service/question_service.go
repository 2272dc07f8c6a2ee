package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

type questionAPI interface {
	FetchQuestions(ctx context.Context, token, courseID, lessonID string) ([]models.LessonQuestion, error)
	AskQuestion(ctx context.Context, token, courseID, lessonID, text string) (*models.LessonQuestion, error)
}

// QuestionService relays lesson questions to the backend for lessons the viewer can see.
type QuestionService struct {
	api       questionAPI
	store     *AppStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(api questionAPI, store *AppStore, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuestionService{api: api, store: store, validator: validate, logger: logger}
}

// List returns the questions of a visible lesson.
func (s *QuestionService) List(ctx context.Context, sessionID, courseID, lessonID string) ([]models.LessonQuestion, error) {
	sess, err := s.lesson(sessionID, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	questions, err := s.api.FetchQuestions(ctx, sess.Token, courseID, lessonID)
	if err != nil {
		return nil, upstreamError(err, "failed to load questions")
	}
	return questions, nil
}

// Ask posts a question under a visible lesson.
func (s *QuestionService) Ask(ctx context.Context, sessionID, courseID, lessonID string, req models.AskQuestionRequest) (*models.LessonQuestion, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "question text is required and at most 2000 characters")
	}
	sess, err := s.lesson(sessionID, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	question, err := s.api.AskQuestion(ctx, sess.Token, courseID, lessonID, req.Text)
	if err != nil {
		s.logger.Warn("ask question failed",
			zap.String("session_id", sessionID),
			zap.String("course_id", courseID),
			zap.String("lesson_id", lessonID),
			zap.Error(err))
		return nil, upstreamError(err, "failed to post question")
	}
	s.store.events.Publish(sessionID, EventQuestionPosted, question)
	return question, nil
}

func (s *QuestionService) lesson(sessionID, courseID, lessonID string) (Session, error) {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return Session{}, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	course, err := s.store.Course(sessionID, courseID)
	if err != nil {
		return Session{}, err
	}
	if _, ok := course.FindLesson(lessonID); !ok {
		return Session{}, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	return sess, nil
}
