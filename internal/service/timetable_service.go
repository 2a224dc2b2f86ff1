package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/scheduling"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type departmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type courseCatalog interface {
	ListByDepartment(ctx context.Context, departmentID string) ([]models.Course, error)
	ListExamCourses(ctx context.Context, departmentID string) ([]models.ExamCourse, error)
}

type eventCatalog interface {
	ListFixed(ctx context.Context, institution string) ([]models.FixedEvent, error)
}

type timetableStore interface {
	Upsert(ctx context.Context, record *models.TimetableRecord) error
	Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*models.TimetableRecord, error)
	ListByDepartments(ctx context.Context, departmentIDs []string, kind models.TimetableKind) ([]models.TimetableRecord, error)
	Delete(ctx context.Context, departmentID string, kind models.TimetableKind) error
}

type documentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type timetableNotifier interface {
	TimetableReady(ctx context.Context, department *models.Department, kind models.TimetableKind, recipients []string)
}

type generationMetrics interface {
	ObserveGeneration(kind string, omitted int, success bool, duration time.Duration)
	RecordCacheOperation(hit bool)
}

// TimetableConfig governs generation behaviour.
type TimetableConfig struct {
	Institution string
	CacheTTL    time.Duration
}

// TimetableService generates, stores, and serves class and exam timetables.
type TimetableService struct {
	departments departmentReader
	courses     courseCatalog
	events      eventCatalog
	store       timetableStore
	cache       documentCache
	notifier    timetableNotifier
	metrics     generationMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         TimetableConfig
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	departments departmentReader,
	courses courseCatalog,
	events eventCatalog,
	store timetableStore,
	cache documentCache,
	notifier timetableNotifier,
	metrics generationMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		departments: departments,
		courses:     courses,
		events:      events,
		store:       store,
		cache:       cache,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// GenerateClass builds and stores the weekly class timetable for a department.
func (s *TimetableService) GenerateClass(ctx context.Context, req dto.GenerateClassTimetableRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class timetable payload")
	}
	department, err := s.loadDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	events, err := s.events.ListFixed(ctx, s.cfg.Institution)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fixed events")
	}
	courses, err := s.courses.ListByDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	table, err := scheduling.GenerateClassTimetable(events, courses)
	if err != nil {
		s.observeGeneration(models.TimetableKindClass, 0, false, started)
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, appErrors.ErrMalformedInput.Status, "event or course data is malformed")
	}

	omitted := omittedCourseCodes(courses, table)
	resp, err := s.persist(ctx, department, models.TimetableKindClass, table, omitted)
	if err != nil {
		return nil, err
	}
	s.observeGeneration(models.TimetableKindClass, len(omitted), true, started)
	s.notify(ctx, department, models.TimetableKindClass, req.Notify)
	return resp, nil
}

// GenerateExams builds and stores the exam timetable for a department within
// the requested date range.
func (s *TimetableService) GenerateExams(ctx context.Context, req dto.GenerateExamTimetableRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam timetable payload")
	}
	department, err := s.loadDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	courses, err := s.courses.ListExamCourses(ctx, req.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam courses")
	}

	table, err := scheduling.GenerateExamTimetable(courses, req.StartDate, req.EndDate)
	if err != nil {
		s.observeGeneration(models.TimetableKindExam, 0, false, started)
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, appErrors.ErrMalformedInput.Status, "exam date range is invalid")
	}

	omitted := omittedExamCodes(courses, table)
	resp, err := s.persist(ctx, department, models.TimetableKindExam, table, omitted)
	if err != nil {
		return nil, err
	}
	s.observeGeneration(models.TimetableKindExam, len(omitted), true, started)
	s.notify(ctx, department, models.TimetableKindExam, req.Notify)
	return resp, nil
}

// Get serves the stored timetable for a department, cache first.
func (s *TimetableService) Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*dto.TimetableResponse, error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be class or exam")
	}

	key := cacheKey(departmentID, kind)
	if s.cache != nil {
		var cached dto.TimetableResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCache(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("timetable cache read failed", "key", key, "error", err)
		}
		s.recordCache(false)
	}

	record, err := s.store.Get(ctx, departmentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable has not been generated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	var table models.Timetable
	if err := json.Unmarshal(record.Doc, &table); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable document is corrupt")
	}

	resp := &dto.TimetableResponse{
		DepartmentID: record.DepartmentID,
		Kind:         string(record.Kind),
		Institution:  record.Institution,
		Timetable:    table,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("timetable cache write failed", "key", key, "error", err)
		}
	}
	return resp, nil
}

// Combined merges stored timetables of one kind across departments. Duplicate
// entries sharing a name and venue collapse into one.
func (s *TimetableService) Combined(ctx context.Context, query dto.CombinedTimetableQuery) (*dto.CombinedTimetableResponse, error) {
	kind := models.TimetableKind(query.Kind)
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be class or exam")
	}
	if len(query.DepartmentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "departmentIds must contain at least one entry")
	}

	records, err := s.store.ListByDepartments(ctx, query.DepartmentIDs, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetables")
	}

	byDepartment := make(map[string]models.TimetableRecord, len(records))
	for _, record := range records {
		byDepartment[record.DepartmentID] = record
	}

	// Merge in the order departments were requested so combining is
	// deterministic regardless of query plan ordering.
	tables := make([]models.Timetable, 0, len(records))
	included := make([]string, 0, len(records))
	for _, id := range query.DepartmentIDs {
		record, ok := byDepartment[id]
		if !ok {
			continue
		}
		var table models.Timetable
		if err := json.Unmarshal(record.Doc, &table); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable document is corrupt")
		}
		tables = append(tables, table)
		included = append(included, id)
	}
	if len(tables) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetables found for the requested departments")
	}

	return &dto.CombinedTimetableResponse{
		Kind:        string(kind),
		Institution: s.cfg.Institution,
		Departments: included,
		Timetable:   scheduling.Merge(tables...),
	}, nil
}

// Delete removes a stored timetable document and evicts its cached copies.
func (s *TimetableService) Delete(ctx context.Context, departmentID string, kind models.TimetableKind) error {
	if departmentID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	if !kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "kind must be class or exam")
	}

	if _, err := s.store.Get(ctx, departmentID, kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable has not been generated")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := s.store.Delete(ctx, departmentID, kind); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	if s.cache != nil {
		key := cacheKey(departmentID, kind)
		if err := s.cache.DeleteByPattern(ctx, key); err != nil {
			s.logger.Sugar().Warnw("timetable cache eviction failed", "key", key, "error", err)
		}
	}
	return nil
}

// MoveCourse relocates a placed course to a new weekday and start time while
// preserving its duration.
func (s *TimetableService) MoveCourse(ctx context.Context, departmentID, courseID string, req dto.MoveCourseRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	if !scheduling.IsWeekday(req.Day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a working day", req.Day))
	}
	newStart, err := scheduling.ParseClock(req.StartFrom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startFrom is not a valid time")
	}

	record, err := s.store.Get(ctx, departmentID, models.TimetableKindClass)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable has not been generated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	var table models.Timetable
	if err := json.Unmarshal(record.Doc, &table); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable document is corrupt")
	}

	fromDay, index := findCourse(table, courseID)
	if fromDay == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course is not placed on this timetable")
	}
	entry := table[fromDay][index]
	if entry.Fixed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fixed events cannot be moved")
	}

	oldStart, err := scheduling.ParseClock(entry.StartFrom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable document is corrupt")
	}
	oldEnd, err := scheduling.ParseClock(entry.EndsAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable document is corrupt")
	}
	duration := scheduling.MinutesBetween(oldStart, oldEnd)
	newEnd := newStart.Add(duration)

	if newStart < scheduling.DayStart || newEnd > scheduling.DayEnd || newEnd <= newStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "move falls outside the working window")
	}
	if conflict := findOverlap(table[req.Day], courseID, entry, newStart, newEnd); conflict != "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("time overlaps with %s", conflict))
	}

	table[fromDay] = append(table[fromDay][:index], table[fromDay][index+1:]...)
	entry.StartFrom = newStart.String()
	entry.EndsAt = newEnd.String()
	table[req.Day] = append(table[req.Day], entry)
	sortEntries(table[req.Day])

	department := &models.Department{ID: record.DepartmentID, Institution: record.Institution}
	return s.persist(ctx, department, models.TimetableKindClass, table, nil)
}

func (s *TimetableService) loadDepartment(ctx context.Context, id string) (*models.Department, error) {
	department, err := s.departments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return department, nil
}

func (s *TimetableService) persist(ctx context.Context, department *models.Department, kind models.TimetableKind, table models.Timetable, omitted []string) (*dto.TimetableResponse, error) {
	doc, err := json.Marshal(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable document")
	}
	institution := department.Institution
	if institution == "" {
		institution = s.cfg.Institution
	}
	record := &models.TimetableRecord{
		DepartmentID: department.ID,
		Kind:         kind,
		Institution:  institution,
		Doc:          types.JSONText(doc),
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}

	resp := &dto.TimetableResponse{
		DepartmentID: department.ID,
		Kind:         string(kind),
		Institution:  institution,
		Timetable:    table,
		Omitted:      omitted,
	}
	if s.cache != nil {
		key := cacheKey(department.ID, kind)
		if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("timetable cache write failed", "key", key, "error", err)
		}
	}
	return resp, nil
}

func (s *TimetableService) observeGeneration(kind models.TimetableKind, omitted int, success bool, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveGeneration(string(kind), omitted, success, time.Since(started))
}

func (s *TimetableService) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheOperation(hit)
}

func (s *TimetableService) notify(ctx context.Context, department *models.Department, kind models.TimetableKind, recipients []string) {
	if s.notifier == nil || len(recipients) == 0 {
		return
	}
	s.notifier.TimetableReady(ctx, department, kind, recipients)
}

func cacheKey(departmentID string, kind models.TimetableKind) string {
	return fmt.Sprintf("timetable:%s:%s", departmentID, kind)
}

func omittedCourseCodes(courses []models.Course, table models.Timetable) []string {
	placed := placedCourseIDs(table)
	var omitted []string
	for _, course := range courses {
		if !placed[course.ID] {
			omitted = append(omitted, course.Code)
		}
	}
	return omitted
}

func omittedExamCodes(courses []models.ExamCourse, table models.Timetable) []string {
	placed := placedCourseIDs(table)
	var omitted []string
	for _, course := range courses {
		if !placed[course.CourseID] {
			omitted = append(omitted, course.Code)
		}
	}
	return omitted
}

func placedCourseIDs(table models.Timetable) map[string]bool {
	placed := make(map[string]bool)
	for _, entries := range table {
		for _, entry := range entries {
			if entry.CourseID != "" {
				placed[entry.CourseID] = true
			}
		}
	}
	return placed
}

func findCourse(table models.Timetable, courseID string) (string, int) {
	for day, entries := range table {
		for i, entry := range entries {
			if entry.CourseID == courseID {
				return day, i
			}
		}
	}
	return "", -1
}

// findOverlap reports the first entry on the target day whose time range
// intersects [start, end) and whose audience overlaps the moved course.
func findOverlap(entries []models.Entry, courseID string, moved models.Entry, start, end scheduling.Clock) string {
	for _, other := range entries {
		if other.CourseID == courseID && courseID != "" {
			continue
		}
		otherStart, err := scheduling.ParseClock(other.StartFrom)
		if err != nil {
			continue
		}
		otherEnd, err := scheduling.ParseClock(other.EndsAt)
		if err != nil {
			continue
		}
		if otherStart >= end || otherEnd <= start {
			continue
		}
		if other.Venue == moved.Venue {
			return other.Name
		}
		if tagsIntersect(other.Departments, moved.Departments) && tagsIntersect(other.Levels, moved.Levels) {
			return other.Name
		}
	}
	return ""
}

// tagsIntersect treats an empty tag set as matching everyone.
func tagsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	set := make(map[string]bool, len(a))
	for _, tag := range a {
		set[tag] = true
	}
	for _, tag := range b {
		if set[tag] {
			return true
		}
	}
	return false
}

func sortEntries(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		left, errL := scheduling.ParseClock(entries[i].StartFrom)
		right, errR := scheduling.ParseClock(entries[j].StartFrom)
		if errL != nil || errR != nil {
			return false
		}
		return left < right
	})
}
