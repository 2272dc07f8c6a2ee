package curriculum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
)

func strPtr(s string) *string { return &s }

func mustApply(t *testing.T, d Draft, cmds ...Command) Draft {
	t.Helper()
	for _, cmd := range cmds {
		var err error
		d, err = Apply(d, cmd)
		require.NoError(t, err)
	}
	return d
}

func TestNewDraftStartsWithExpandedIntroduction(t *testing.T) {
	d := NewDraft("d1", "ana@x.com")

	require.Len(t, d.Modules, 1)
	assert.Equal(t, FirstModuleTitle, d.Modules[0].Title)
	assert.True(t, d.IsExpanded(d.Modules[0].ID))
	assert.Equal(t, models.StatusDraft, d.Status)
}

func TestAddModuleDefaultsAndExpands(t *testing.T) {
	d := NewDraft("d1", "")
	next := mustApply(t, d, AddModule{ModuleID: "m2"})

	require.Len(t, next.Modules, 2)
	assert.Equal(t, "Seção 2: Novo Módulo", next.Modules[1].Title)
	assert.True(t, next.IsExpanded("m2"))
	assert.Len(t, d.Modules, 1)
}

func TestRemoveModuleRequiresConfirmation(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m2"}, AddLesson{ModuleID: "m2", LessonID: "l1"})

	_, err := Apply(d, RemoveModule{ModuleID: "m2"})
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	next, err := Apply(d, RemoveModule{ModuleID: "m2", Confirmed: true})
	require.NoError(t, err)
	assert.Len(t, next.Modules, 1)
	assert.False(t, next.IsExpanded("m2"))
	assert.Empty(t, next.EditingLessonID)
	assert.Len(t, d.Modules, 2)
}

func TestUpdateModuleTouchesOnlyTarget(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m2"})
	first := d.Modules[0].Title

	next := mustApply(t, d, UpdateModule{ModuleID: "m2", Title: strPtr("Massas"), Description: strPtr("Fermentação")})

	assert.Equal(t, first, next.Modules[0].Title)
	assert.Equal(t, "Massas", next.Modules[1].Title)
	assert.Equal(t, "Fermentação", next.Modules[1].Description)
	assert.Equal(t, "Seção 2: Novo Módulo", d.Modules[1].Title)
}

func TestAddLessonDefaultsAndOpensEditor(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m"}, AddLesson{ModuleID: "m", LessonID: "l1"})

	lesson := d.Modules[1].Lessons[0]
	assert.Equal(t, DefaultLessonTitle, lesson.Title)
	assert.Equal(t, "05:00", lesson.Duration)
	assert.Equal(t, models.VideoUpload, lesson.VideoType)
	assert.Equal(t, "l1", d.EditingLessonID)
}

func TestToggleLessonEditorSingleOpen(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""),
		AddModule{ModuleID: "m"},
		AddLesson{ModuleID: "m", LessonID: "l1"},
		AddLesson{ModuleID: "m", LessonID: "l2"},
	)
	assert.Equal(t, "l2", d.EditingLessonID)

	d = mustApply(t, d, ToggleLessonEditor{LessonID: "l1"})
	assert.Equal(t, "l1", d.EditingLessonID)

	d = mustApply(t, d, ToggleLessonEditor{LessonID: "l1"})
	assert.Empty(t, d.EditingLessonID)

	_, err := Apply(d, ToggleLessonEditor{LessonID: "ghost"})
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestUpdateLessonMergesPatchWithoutAliasing(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m"}, AddLesson{ModuleID: "m", LessonID: "l1"})
	objectives := []string{"sovar"}

	next := mustApply(t, d, UpdateLesson{ModuleID: "m", LessonID: "l1", Patch: LessonPatch{
		Title:      strPtr("Sova"),
		Objectives: &objectives,
	}})
	objectives[0] = "mutated"

	lesson := next.Modules[1].Lessons[0]
	assert.Equal(t, "Sova", lesson.Title)
	assert.Equal(t, "05:00", lesson.Duration)
	assert.Equal(t, []string{"sovar"}, lesson.Objectives)
	assert.Equal(t, DefaultLessonTitle, d.Modules[1].Lessons[0].Title)
}

func TestUpdateLessonUnknownReturnsError(t *testing.T) {
	d := NewDraft("d1", "")
	_, err := Apply(d, UpdateLesson{ModuleID: d.Modules[0].ID, LessonID: "x"})
	assert.ErrorIs(t, err, ErrLessonNotFound)

	_, err = Apply(d, UpdateLesson{ModuleID: "nope", LessonID: "x"})
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestStageCoverSetsPreviewAndRemoveClearsIt(t *testing.T) {
	d := NewDraft("d1", "")
	staged := mustApply(t, d, StageCover{
		File:       StagedFile{Handle: "staging/s/d1/a.png", FileName: "a.png"},
		PreviewURL: "/api/v1/drafts/previews/tok",
	})

	assert.Equal(t, "/api/v1/drafts/previews/tok", staged.Cover.DisplayURL())
	_, ok := staged.Staged.Get(EntityRef{Kind: KindCover})
	assert.True(t, ok)

	cleared := mustApply(t, staged, RemoveCover{})
	assert.Empty(t, cleared.Cover.DisplayURL())
	assert.Equal(t, AssetNone, cleared.Cover.State)
	assert.Empty(t, cleared.Staged)
	assert.Empty(t, cleared.RemovalIntents())
}

func TestRemovingPersistedCoverRecordsRemovalIntent(t *testing.T) {
	d := FromCourse("d1", models.Course{ID: "c1", Title: "Pães", ThumbnailURL: "https://cdn/c1.png"})

	d = mustApply(t, d, StageCover{File: StagedFile{Handle: "h"}, PreviewURL: "p"})
	assert.Equal(t, "https://cdn/c1.png", d.Cover.Replaces)

	d = mustApply(t, d, RemoveCover{})
	assert.Equal(t, []Removal{{Owner: EntityRef{Kind: KindCover}, URL: "https://cdn/c1.png"}}, d.RemovalIntents())
}

func TestStageVideoAndBackfillDuration(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m"}, AddLesson{ModuleID: "m", LessonID: "l1"})
	d = mustApply(t, d,
		StageVideo{ModuleID: "m", LessonID: "l1", File: StagedFile{Handle: "v1"}, PreviewURL: "pv"},
		SetLessonDuration{LessonID: "l1", Duration: "12:34"},
		SetLessonDuration{LessonID: "ghost", Duration: "99:99"},
	)

	lesson := d.Modules[1].Lessons[0]
	assert.Equal(t, "pv", lesson.Video.DisplayURL())
	assert.Equal(t, "12:34", lesson.Duration)
	file, ok := d.Staged.Get(EntityRef{Kind: KindVideo, ID: "l1"})
	require.True(t, ok)
	assert.Equal(t, "v1", file.Handle)
}

func TestRestagingVideoOrphansPreviousFile(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m"}, AddLesson{ModuleID: "m", LessonID: "l1"},
		StageVideo{ModuleID: "m", LessonID: "l1", File: StagedFile{Handle: "v1"}})
	next := mustApply(t, d, StageVideo{ModuleID: "m", LessonID: "l1", File: StagedFile{Handle: "v2"}})

	assert.Equal(t, []string{"v1"}, Orphans(d.Staged, next.Staged))
	assert.Len(t, next.Staged, 1)
}

func TestStageAttachmentCreatesEntry(t *testing.T) {
	d := mustApply(t, NewDraft("d1", ""), AddModule{ModuleID: "m"}, AddLesson{ModuleID: "m", LessonID: "l1"})
	d = mustApply(t, d, StageAttachment{
		ModuleID: "m", LessonID: "l1", AttachmentID: "a1",
		File: StagedFile{Handle: "h", FileName: "receitas.pdf", ContentType: "application/pdf", Size: 2048},
	})

	att := d.Modules[1].Lessons[0].Attachments[0]
	assert.Equal(t, "receitas.pdf", att.Name)
	assert.Equal(t, "2.0 KB", att.Size)
	assert.Equal(t, models.AttachmentPDF, att.Type)

	d = mustApply(t, d, RemoveStagedAttachment{ModuleID: "m", LessonID: "l1", AttachmentID: "a1"})
	assert.Equal(t, AssetNone, d.Modules[1].Lessons[0].Attachments[0].File.State)
	assert.Empty(t, d.Staged)
}

func TestRemoveLessonDetachesPersistedAssets(t *testing.T) {
	course := models.Course{ID: "c1", Title: "Pães", Modules: []models.Module{{
		ID: "m1", Title: "A", Lessons: []models.Lesson{{
			ID: "l1", VideoURL: "https://cdn/v.mp4",
			Attachments: []models.Attachment{{ID: "a1", Name: "x.pdf", URL: "https://cdn/x.pdf"}},
		}},
	}}}
	d := FromCourse("d1", course)

	d = mustApply(t, d, RemoveLesson{ModuleID: "m1", LessonID: "l1"})

	assert.Empty(t, d.Modules[0].Lessons)
	assert.ElementsMatch(t, []Removal{
		{Owner: EntityRef{Kind: KindVideo, ID: "l1"}, URL: "https://cdn/v.mp4"},
		{Owner: EntityRef{Kind: KindAttachment, ID: "a1"}, URL: "https://cdn/x.pdf"},
	}, d.RemovalIntents())
}

func TestSwitchingUploadToEmbedDetachesStoredVideo(t *testing.T) {
	course := models.Course{ID: "c1", Title: "Pães", Modules: []models.Module{{
		ID: "m1", Title: "A", Lessons: []models.Lesson{{ID: "l1", VideoURL: "https://cdn/v.mp4"}},
	}}}
	d := FromCourse("d1", course)

	d = mustApply(t, d, UpdateLesson{ModuleID: "m1", LessonID: "l1", Patch: LessonPatch{EmbedURL: strPtr("https://youtube.com/embed/x")}})

	lesson := d.Modules[0].Lessons[0]
	assert.Equal(t, models.VideoEmbed, lesson.VideoType)
	assert.Equal(t, "https://youtube.com/embed/x", lesson.Video.DisplayURL())
	assert.Equal(t, []Removal{{Owner: EntityRef{Kind: KindVideo, ID: "l1"}, URL: "https://cdn/v.mp4"}}, d.RemovalIntents())

	d = mustApply(t, d, RemoveVideo{ModuleID: "m1", LessonID: "l1"})
	assert.Equal(t, AssetNone, d.Modules[0].Lessons[0].Video.State)
	assert.Equal(t, []Removal{{Owner: EntityRef{Kind: KindVideo, ID: "l1"}, URL: "https://cdn/v.mp4"}}, d.RemovalIntents())
}

func TestStagedVideoReplacedByEmbedKeepsReplacedRemoval(t *testing.T) {
	course := models.Course{ID: "c1", Title: "Pães", Modules: []models.Module{{
		ID: "m1", Title: "A", Lessons: []models.Lesson{{ID: "l1", VideoURL: "https://cdn/v.mp4"}},
	}}}
	d := mustApply(t, FromCourse("d1", course),
		StageVideo{ModuleID: "m1", LessonID: "l1", File: StagedFile{Handle: "v2"}, PreviewURL: "pv"},
		UpdateLesson{ModuleID: "m1", LessonID: "l1", Patch: LessonPatch{EmbedURL: strPtr("https://youtube.com/embed/x")}},
	)

	assert.Empty(t, d.Staged)
	assert.Equal(t, []Removal{{Owner: EntityRef{Kind: KindVideo, ID: "l1"}, URL: "https://cdn/v.mp4"}}, d.RemovalIntents())
}

func TestEmbeddedVideoIsNeverARemovalIntent(t *testing.T) {
	course := models.Course{ID: "c1", Title: "Pães", Modules: []models.Module{{
		ID: "m1", Title: "A", Lessons: []models.Lesson{{ID: "l1", VideoType: models.VideoEmbed, VideoURL: "https://youtube.com/embed/x"}},
	}}}
	d := FromCourse("d1", course)

	removed := mustApply(t, d, RemoveVideo{ModuleID: "m1", LessonID: "l1"})
	assert.Empty(t, removed.RemovalIntents())

	restaged := mustApply(t, d, StageVideo{ModuleID: "m1", LessonID: "l1", File: StagedFile{Handle: "v1"}})
	assert.Empty(t, restaged.Modules[0].Lessons[0].Video.Replaces)

	dropped := mustApply(t, d, RemoveLesson{ModuleID: "m1", LessonID: "l1"})
	assert.Empty(t, dropped.RemovalIntents())
}

func TestUpdateInfoAndValidate(t *testing.T) {
	d := NewDraft("d1", "")
	assert.ErrorIs(t, Validate(d), ErrTitleRequired)

	price := 97.0
	published := models.StatusPublished
	d = mustApply(t, d, UpdateInfo{Title: strPtr("  Bolos  "), Price: &price, Status: &published})
	assert.NoError(t, Validate(d))
	assert.Equal(t, 97.0, *d.Price)

	d = mustApply(t, d, UpdateInfo{ClearPrice: true, Title: strPtr("   ")})
	assert.Nil(t, d.Price)
	assert.ErrorIs(t, Validate(d), ErrTitleRequired)
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand("removeModule", json.RawMessage(`{"moduleId":"m1","confirmed":true}`))
	require.NoError(t, err)
	assert.Equal(t, RemoveModule{ModuleID: "m1", Confirmed: true}, cmd)

	cmd, err = DecodeCommand("removeCover", nil)
	require.NoError(t, err)
	assert.Equal(t, RemoveCover{}, cmd)

	_, err = DecodeCommand("stageCover", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestToCourseOmitsStagedURLs(t *testing.T) {
	d := mustApply(t, NewDraft("d1", "ana@x.com"), UpdateInfo{Title: strPtr("Pães")},
		StageCover{File: StagedFile{Handle: "h"}, PreviewURL: "preview"})
	course := ToCourse(d)

	assert.Empty(t, course.ThumbnailURL)
	assert.Equal(t, "ana@x.com", course.CreatorEmail)
	assert.Equal(t, "0h 0m", course.TotalDuration)
}
