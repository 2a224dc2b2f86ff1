package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type departmentStub struct {
	department *models.Department
	err        error
}

func (s departmentStub) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.department, nil
}

type courseStub struct {
	courses []models.Course
	exams   []models.ExamCourse
	err     error
}

func (s courseStub) ListByDepartment(ctx context.Context, departmentID string) ([]models.Course, error) {
	return s.courses, s.err
}

func (s courseStub) ListExamCourses(ctx context.Context, departmentID string) ([]models.ExamCourse, error) {
	return s.exams, s.err
}

type eventStub struct {
	events []models.FixedEvent
	err    error
}

func (s eventStub) ListFixed(ctx context.Context, institution string) ([]models.FixedEvent, error) {
	return s.events, s.err
}

type storeStub struct {
	records  map[string]*models.TimetableRecord
	upserted []*models.TimetableRecord
	getErr   error
	upErr    error
}

func storeKey(departmentID string, kind models.TimetableKind) string {
	return departmentID + "/" + string(kind)
}

func (s *storeStub) Upsert(ctx context.Context, record *models.TimetableRecord) error {
	if s.upErr != nil {
		return s.upErr
	}
	if s.records == nil {
		s.records = make(map[string]*models.TimetableRecord)
	}
	s.records[storeKey(record.DepartmentID, record.Kind)] = record
	s.upserted = append(s.upserted, record)
	return nil
}

func (s *storeStub) Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*models.TimetableRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.records[storeKey(departmentID, kind)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (s *storeStub) ListByDepartments(ctx context.Context, departmentIDs []string, kind models.TimetableKind) ([]models.TimetableRecord, error) {
	var records []models.TimetableRecord
	for _, id := range departmentIDs {
		if record, ok := s.records[storeKey(id, kind)]; ok {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (s *storeStub) Delete(ctx context.Context, departmentID string, kind models.TimetableKind) error {
	delete(s.records, storeKey(departmentID, kind))
	return nil
}

type cacheStub struct {
	items   map[string][]byte
	gets    int
	sets    int
	evicted []string
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	s.gets++
	raw, ok := s.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.items == nil {
		s.items = make(map[string][]byte)
	}
	s.items[key] = raw
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.evicted = append(s.evicted, pattern)
	delete(s.items, pattern)
	return nil
}

type notifierStub struct {
	calls []string
}

func (s *notifierStub) TimetableReady(ctx context.Context, department *models.Department, kind models.TimetableKind, recipients []string) {
	s.calls = append(s.calls, string(kind))
}

func testDepartment() *models.Department {
	return &models.Department{
		ID:          "dept-csc",
		Code:        "CSC",
		Name:        "Computer Science",
		Institution: "Federal University of Technology",
	}
}

func newTestTimetableService(departments departmentReader, courses courseCatalog, events eventCatalog, store timetableStore, cache documentCache, notifier timetableNotifier) *TimetableService {
	return NewTimetableService(departments, courses, events, store, cache, notifier, nil, validator.New(), nil, TimetableConfig{
		Institution: "Federal University of Technology",
		CacheTTL:    time.Minute,
	})
}

func TestTimetableServiceGenerateClass(t *testing.T) {
	store := &storeStub{}
	cache := &cacheStub{}
	notifier := &notifierStub{}
	svc := newTestTimetableService(
		departmentStub{department: testDepartment()},
		courseStub{courses: []models.Course{{
			ID: "course-1", Code: "CSC101", Title: "Introduction to Computing",
			Units: 3, DurationHours: 2, Venue: "LT1", DepartmentID: "dept-csc", LevelID: "100",
		}}},
		eventStub{},
		store, cache, notifier,
	)

	resp, err := svc.GenerateClass(context.Background(), dto.GenerateClassTimetableRequest{
		DepartmentID: "dept-csc",
		Notify:       []string{"hod@example.edu"},
	})
	require.NoError(t, err)
	assert.Equal(t, "dept-csc", resp.DepartmentID)
	assert.Equal(t, string(models.TimetableKindClass), resp.Kind)
	assert.Empty(t, resp.Omitted)

	monday := resp.Timetable["Monday"]
	require.Len(t, monday, 1)
	assert.Equal(t, "08:00:00", monday[0].StartFrom)
	assert.Equal(t, "10:00:00", monday[0].EndsAt)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, []string{"class"}, notifier.calls)
}

func TestTimetableServiceGenerateClassDepartmentNotFound(t *testing.T) {
	svc := newTestTimetableService(
		departmentStub{err: sql.ErrNoRows},
		courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil,
	)

	_, err := svc.GenerateClass(context.Background(), dto.GenerateClassTimetableRequest{DepartmentID: "dept-missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateClassMalformedEvent(t *testing.T) {
	svc := newTestTimetableService(
		departmentStub{department: testDepartment()},
		courseStub{},
		eventStub{events: []models.FixedEvent{{
			Name: "Chapel", Venue: "Hall", StartFrom: "late morning", EndsAt: "10:00:00",
			Recurring: true, Day: models.EveryDay,
		}}},
		&storeStub{}, &cacheStub{}, nil,
	)

	_, err := svc.GenerateClass(context.Background(), dto.GenerateClassTimetableRequest{DepartmentID: "dept-csc"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedInput.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateClassReportsOmitted(t *testing.T) {
	blockAll := make([]models.FixedEvent, 0, 1)
	blockAll = append(blockAll, models.FixedEvent{
		Name: "Renovation", Venue: "Campus", StartFrom: "08:00:00", EndsAt: "18:00:00",
		Recurring: true, Day: models.EveryDay,
	})
	svc := newTestTimetableService(
		departmentStub{department: testDepartment()},
		courseStub{courses: []models.Course{{
			ID: "course-1", Code: "CSC101", Title: "Introduction to Computing",
			Units: 3, DurationHours: 2, Venue: "LT1", DepartmentID: "dept-csc", LevelID: "100",
		}}},
		eventStub{events: blockAll},
		&storeStub{}, &cacheStub{}, nil,
	)

	resp, err := svc.GenerateClass(context.Background(), dto.GenerateClassTimetableRequest{DepartmentID: "dept-csc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CSC101"}, resp.Omitted)
}

func TestTimetableServiceGenerateExams(t *testing.T) {
	store := &storeStub{}
	svc := newTestTimetableService(
		departmentStub{department: testDepartment()},
		courseStub{exams: []models.ExamCourse{{
			ID: "exam-1", CourseID: "course-1", Code: "CSC101", Title: "Introduction to Computing",
			Units: 3, DurationHours: 3, Venue: "Exam Hall A", LevelID: "100",
		}}},
		eventStub{},
		store, &cacheStub{}, nil,
	)

	resp, err := svc.GenerateExams(context.Background(), dto.GenerateExamTimetableRequest{
		DepartmentID: "dept-csc",
		StartDate:    "2026-01-05",
		EndDate:      "2026-01-09",
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.TimetableKindExam), resp.Kind)
	assert.Empty(t, resp.Omitted)

	// 2026-01-05 is a Monday, the first business day in range.
	day := resp.Timetable["2026-01-05"]
	require.Len(t, day, 1)
	assert.Equal(t, "08:00:00", day[0].StartFrom)
	assert.Equal(t, "11:00:00", day[0].EndsAt)
}

func TestTimetableServiceGenerateExamsInvertedRange(t *testing.T) {
	svc := newTestTimetableService(
		departmentStub{department: testDepartment()},
		courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil,
	)

	_, err := svc.GenerateExams(context.Background(), dto.GenerateExamTimetableRequest{
		DepartmentID: "dept-csc",
		StartDate:    "2026-01-09",
		EndDate:      "2026-01-05",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedInput.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetCacheFirst(t *testing.T) {
	cache := &cacheStub{}
	cached := dto.TimetableResponse{
		DepartmentID: "dept-csc",
		Kind:         "class",
		Timetable:    models.Timetable{"Monday": {}},
	}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.items = map[string][]byte{"timetable:dept-csc:class": raw}

	store := &storeStub{getErr: sql.ErrConnDone}
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, store, cache, nil)

	resp, err := svc.Get(context.Background(), "dept-csc", models.TimetableKindClass)
	require.NoError(t, err)
	assert.Equal(t, "dept-csc", resp.DepartmentID)
	assert.Equal(t, 1, cache.gets)
}

func TestTimetableServiceGetNotGenerated(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil)

	_, err := svc.Get(context.Background(), "dept-csc", models.TimetableKindExam)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetInvalidKind(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil)

	_, err := svc.Get(context.Background(), "dept-csc", models.TimetableKind("weekly"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetFromStore(t *testing.T) {
	doc := models.Timetable{"Monday": {{CourseID: "course-1", Code: "CSC101", Name: "Introduction to Computing", Venue: "LT1", StartFrom: "08:00:00", EndsAt: "10:00:00"}}}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	store := &storeStub{records: map[string]*models.TimetableRecord{
		"dept-csc/class": {
			ID: "tt-1", DepartmentID: "dept-csc", Kind: models.TimetableKindClass,
			Institution: "Federal University of Technology", Doc: types.JSONText(raw),
		},
	}}
	cache := &cacheStub{}
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, store, cache, nil)

	resp, err := svc.Get(context.Background(), "dept-csc", models.TimetableKindClass)
	require.NoError(t, err)
	require.Len(t, resp.Timetable["Monday"], 1)
	assert.Equal(t, "CSC101", resp.Timetable["Monday"][0].Code)
	assert.Equal(t, 1, cache.sets)
}

func TestTimetableServiceDeleteEvictsStoreAndCache(t *testing.T) {
	doc := models.Timetable{"Monday": {}}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	store := &storeStub{records: map[string]*models.TimetableRecord{
		"dept-csc/class": {
			ID: "tt-1", DepartmentID: "dept-csc", Kind: models.TimetableKindClass,
			Institution: "Federal University of Technology", Doc: types.JSONText(raw),
		},
	}}
	cache := &cacheStub{items: map[string][]byte{"timetable:dept-csc:class": []byte(`{}`)}}
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, store, cache, nil)

	require.NoError(t, svc.Delete(context.Background(), "dept-csc", models.TimetableKindClass))

	_, ok := store.records["dept-csc/class"]
	assert.False(t, ok)
	assert.Equal(t, []string{"timetable:dept-csc:class"}, cache.evicted)
	assert.Empty(t, cache.items)
}

func TestTimetableServiceDeleteNotGenerated(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil)

	err := svc.Delete(context.Background(), "dept-csc", models.TimetableKindClass)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDeleteRejectsBadKind(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil)

	err := svc.Delete(context.Background(), "dept-csc", models.TimetableKind("midterm"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func combinedFixtureStore(t *testing.T) *storeStub {
	t.Helper()
	cscDoc := models.Timetable{"Monday": {
		{Code: "GST101", Name: "Use of English", Venue: "Main Auditorium", StartFrom: "08:00:00", EndsAt: "10:00:00"},
		{CourseID: "course-1", Code: "CSC101", Name: "Introduction to Computing", Venue: "LT1", StartFrom: "10:00:00", EndsAt: "12:00:00"},
	}}
	eeeDoc := models.Timetable{"Monday": {
		{Code: "GST101", Name: "Use of English", Venue: "Main Auditorium", StartFrom: "08:00:00", EndsAt: "10:00:00"},
		{CourseID: "course-2", Code: "EEE201", Name: "Circuit Theory", Venue: "LT2", StartFrom: "10:00:00", EndsAt: "12:00:00"},
	}}
	rawCSC, err := json.Marshal(cscDoc)
	require.NoError(t, err)
	rawEEE, err := json.Marshal(eeeDoc)
	require.NoError(t, err)
	return &storeStub{records: map[string]*models.TimetableRecord{
		"dept-csc/class": {DepartmentID: "dept-csc", Kind: models.TimetableKindClass, Doc: types.JSONText(rawCSC)},
		"dept-eee/class": {DepartmentID: "dept-eee", Kind: models.TimetableKindClass, Doc: types.JSONText(rawEEE)},
	}}
}

func TestTimetableServiceCombinedDeduplicates(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, combinedFixtureStore(t), &cacheStub{}, nil)

	resp, err := svc.Combined(context.Background(), dto.CombinedTimetableQuery{
		DepartmentIDs: []string{"dept-csc", "dept-eee"},
		Kind:          "class",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dept-csc", "dept-eee"}, resp.Departments)

	monday := resp.Timetable["Monday"]
	require.Len(t, monday, 3)
	names := make([]string, 0, len(monday))
	for _, entry := range monday {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"Use of English", "Introduction to Computing", "Circuit Theory"}, names)
}

func TestTimetableServiceCombinedSkipsMissingDepartments(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, combinedFixtureStore(t), &cacheStub{}, nil)

	resp, err := svc.Combined(context.Background(), dto.CombinedTimetableQuery{
		DepartmentIDs: []string{"dept-csc", "dept-unknown"},
		Kind:          "class",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dept-csc"}, resp.Departments)
}

func TestTimetableServiceCombinedNoneFound(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil)

	_, err := svc.Combined(context.Background(), dto.CombinedTimetableQuery{
		DepartmentIDs: []string{"dept-unknown"},
		Kind:          "class",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCombinedRejectsBadKind(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, &storeStub{}, &cacheStub{}, nil)

	_, err := svc.Combined(context.Background(), dto.CombinedTimetableQuery{
		DepartmentIDs: []string{"dept-csc"},
		Kind:          "weekly",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func moveFixtureStore(t *testing.T) *storeStub {
	t.Helper()
	doc := models.Timetable{
		"Monday": {
			{Name: "Chapel", Venue: "Main Auditorium", StartFrom: "08:00:00", EndsAt: "09:00:00", Fixed: true},
			{CourseID: "course-1", Code: "CSC101", Name: "Introduction to Computing", Venue: "LT1", StartFrom: "09:00:00", EndsAt: "11:00:00", Departments: []string{"dept-csc"}, Levels: []string{"100"}},
		},
		"Tuesday": {
			{CourseID: "course-2", Code: "CSC205", Name: "Data Structures", Venue: "LT1", StartFrom: "10:00:00", EndsAt: "12:00:00", Departments: []string{"dept-csc"}, Levels: []string{"200"}},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return &storeStub{records: map[string]*models.TimetableRecord{
		"dept-csc/class": {
			DepartmentID: "dept-csc", Kind: models.TimetableKindClass,
			Institution: "Federal University of Technology", Doc: types.JSONText(raw),
		},
	}}
}

func TestTimetableServiceMoveCoursePreservesDuration(t *testing.T) {
	store := moveFixtureStore(t)
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, store, &cacheStub{}, nil)

	resp, err := svc.MoveCourse(context.Background(), "dept-csc", "course-1", dto.MoveCourseRequest{
		Day:       "Wednesday",
		StartFrom: "14:00:00",
	})
	require.NoError(t, err)

	require.Len(t, resp.Timetable["Monday"], 1)
	wednesday := resp.Timetable["Wednesday"]
	require.Len(t, wednesday, 1)
	assert.Equal(t, "14:00:00", wednesday[0].StartFrom)
	assert.Equal(t, "16:00:00", wednesday[0].EndsAt)
	require.Len(t, store.upserted, 1)
}

func TestTimetableServiceMoveCourseRequiresCourseID(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, moveFixtureStore(t), &cacheStub{}, nil)

	_, err := svc.MoveCourse(context.Background(), "dept-csc", "", dto.MoveCourseRequest{
		Day:       "Tuesday",
		StartFrom: "08:00:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceMoveCourseOutsideWindow(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, moveFixtureStore(t), &cacheStub{}, nil)

	_, err := svc.MoveCourse(context.Background(), "dept-csc", "course-1", dto.MoveCourseRequest{
		Day:       "Wednesday",
		StartFrom: "17:00:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceMoveCourseRejectsWeekend(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, moveFixtureStore(t), &cacheStub{}, nil)

	_, err := svc.MoveCourse(context.Background(), "dept-csc", "course-1", dto.MoveCourseRequest{
		Day:       "Saturday",
		StartFrom: "08:00:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceMoveCourseDetectsVenueOverlap(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, moveFixtureStore(t), &cacheStub{}, nil)

	// CSC205 occupies LT1 on Tuesday 10:00-12:00; CSC101 also uses LT1.
	_, err := svc.MoveCourse(context.Background(), "dept-csc", "course-1", dto.MoveCourseRequest{
		Day:       "Tuesday",
		StartFrom: "11:00:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceMoveCourseUnknownCourse(t *testing.T) {
	svc := newTestTimetableService(departmentStub{}, courseStub{}, eventStub{}, moveFixtureStore(t), &cacheStub{}, nil)

	_, err := svc.MoveCourse(context.Background(), "dept-csc", "course-404", dto.MoveCourseRequest{
		Day:       "Wednesday",
		StartFrom: "08:00:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
