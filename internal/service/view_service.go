package service

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

//go:embed menus.yaml
var menusYAML []byte

// MenuItem is one navigation entry.
type MenuItem struct {
	ID      string            `yaml:"id" json:"id"`
	Label   string            `yaml:"label" json:"label"`
	Icon    string            `yaml:"icon" json:"icon"`
	Section string            `yaml:"section" json:"section"`
	Roles   []models.UserRole `yaml:"roles" json:"-"`
}

func (m MenuItem) allows(role models.UserRole) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// View is the payload of one page: the menu, the active tab and the state slices it shows.
type View struct {
	Tab  string      `json:"tab"`
	User models.User `json:"user"`
	Menu []MenuItem  `json:"menu"`
	Data interface{} `json:"data"`
}

// DashboardData is the landing page summary.
type DashboardData struct {
	InProgress       []models.Course `json:"inProgress"`
	Continue         *models.Course  `json:"continue,omitempty"`
	NextLesson       *models.Lesson  `json:"nextLesson,omitempty"`
	AvailableCourses int             `json:"availableCourses"`
	CompletedCourses int             `json:"completedCourses"`
	Certificates     int             `json:"certificates"`
}

// ViewQuery carries optional view parameters.
type ViewQuery struct {
	MyCoursesTab string
}

// ViewService maps a location to the page view and the state it needs.
type ViewService struct {
	store        *AppStore
	certificates *CertificateService
	instructor   *InstructorService
	menu         []MenuItem
	logger       *zap.Logger
}

// NewViewService loads the embedded navigation table.
func NewViewService(store *AppStore, certificates *CertificateService, instructor *InstructorService, logger *zap.Logger) (*ViewService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var doc struct {
		Tabs []MenuItem `yaml:"tabs"`
	}
	if err := yaml.Unmarshal(menusYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse menus: %w", err)
	}
	return &ViewService{store: store, certificates: certificates, instructor: instructor, menu: doc.Tabs, logger: logger}, nil
}

// Menu returns the entries visible to a role.
func (s *ViewService) Menu(role models.UserRole) []MenuItem {
	out := make([]MenuItem, 0, len(s.menu))
	for _, item := range s.menu {
		if item.allows(role) {
			out = append(out, item)
		}
	}
	return out
}

// Render builds the view of a tab for the session user.
func (s *ViewService) Render(ctx context.Context, sessionID, tab string, query ViewQuery) (*View, error) {
	state, err := s.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	item, ok := s.find(tab)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown view %q", tab))
	}
	if !item.allows(state.User.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "view not available for this role")
	}

	data, err := s.data(ctx, sessionID, tab, state, query)
	if err != nil {
		return nil, err
	}
	return &View{Tab: tab, User: state.User, Menu: s.Menu(state.User.Role), Data: data}, nil
}

func (s *ViewService) find(tab string) (MenuItem, bool) {
	for _, item := range s.menu {
		if item.ID == tab {
			return item, true
		}
	}
	return MenuItem{}, false
}

func (s *ViewService) data(ctx context.Context, sessionID, tab string, state AppState, query ViewQuery) (interface{}, error) {
	courses := AggregateProgress(VisibleCourses(state.Courses, state.User), state.Progress)

	switch tab {
	case "dashboard":
		return dashboard(courses, state), nil
	case "courses":
		return courses, nil
	case "my-courses":
		sub := query.MyCoursesTab
		if sub == "" {
			sub = TabInProgress
		}
		return map[string]interface{}{"tab": sub, "courses": FilterMyCourses(courses, state.Lists, sub)}, nil
	case "certificates":
		return s.certificates.List(sessionID)
	case "settings":
		return map[string]interface{}{"user": state.User}, nil
	case "instructor":
		return s.instructor.Summary(sessionID)
	case "instructor-courses":
		return s.instructor.Courses(sessionID)
	case "create-course":
		return map[string]interface{}{
			"levels":   []models.CourseLevel{models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced},
			"statuses": []models.CourseStatus{models.StatusDraft, models.StatusPublished, models.StatusArchived},
		}, nil
	case "affiliates":
		return s.instructor.Affiliates(ctx, sessionID)
	case "signature":
		return s.instructor.Signature(ctx, sessionID)
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown view %q", tab))
	}
}

func dashboard(courses []models.Course, state AppState) DashboardData {
	data := DashboardData{
		InProgress:       FilterMyCourses(courses, state.Lists, TabInProgress),
		AvailableCourses: len(courses),
		CompletedCourses: len(FilterMyCourses(courses, state.Lists, TabCompleted)),
		Certificates:     len(state.Certificates),
	}
	if len(data.InProgress) > 0 {
		current := data.InProgress[0]
		data.Continue = &current
		if next, ok := NextLesson(current); ok {
			data.NextLesson = &next
		}
	}
	return data
}
