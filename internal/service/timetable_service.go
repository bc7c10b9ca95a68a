package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// TimetableEntry is one rendered meeting in the weekly view.
type TimetableEntry struct {
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	SubjectID   string `json:"subject_id"`
	TeacherID   string `json:"teacher_id"`
	RoomID      string `json:"room_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	StartMin    int    `json:"start_min"`
	EndMin      int    `json:"end_min"`
}

// TimetableDay groups a day's meetings in start order.
type TimetableDay struct {
	Day     string           `json:"day"`
	Entries []TimetableEntry `json:"entries"`
}

// TimetableFilter narrows the view to one resource.
type TimetableFilter struct {
	TeacherID string
	RoomID    string
	SectionID string
}

// TimetableService renders the weekly schedule of active sections.
type TimetableService struct {
	sections interface {
		ListAll(ctx context.Context) ([]models.ClassSection, error)
	}
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// WithCache enables read-through caching of the weekly view. Entries expire
// after ttl, so the view trails timetable mutations by at most that long.
func (s *TimetableService) WithCache(cache *CacheService, ttl time.Duration) *TimetableService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// NewTimetableService creates a timetable view service.
func NewTimetableService(sections interface {
	ListAll(ctx context.Context) ([]models.ClassSection, error)
}, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{sections: sections, logger: logger}
}

// Week returns Monday through Saturday with every active meeting, optionally
// narrowed to one teacher, room, or section.
func (s *TimetableService) Week(ctx context.Context, filter TimetableFilter) ([]TimetableDay, error) {
	cacheKey := fmt.Sprintf("timetable:week:%s:%s:%s", filter.TeacherID, filter.RoomID, filter.SectionID)
	if s.cache.Enabled() {
		var cached []TimetableDay
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}

	days := []timetable.Weekday{timetable.Monday, timetable.Tuesday, timetable.Wednesday, timetable.Thursday, timetable.Friday, timetable.Saturday}
	byDay := make(map[timetable.Weekday][]TimetableEntry, len(days))

	for _, section := range sections {
		if !section.Active {
			continue
		}
		if filter.TeacherID != "" && section.TeacherID != filter.TeacherID {
			continue
		}
		if filter.RoomID != "" && section.RoomID != filter.RoomID {
			continue
		}
		if filter.SectionID != "" && section.ID != filter.SectionID {
			continue
		}
		for _, slot := range section.Schedule {
			iv := slot.Interval()
			byDay[iv.Day] = append(byDay[iv.Day], TimetableEntry{
				SectionID:   section.ID,
				SectionName: section.Name,
				SubjectID:   section.SubjectID,
				TeacherID:   section.TeacherID,
				RoomID:      section.RoomID,
				Start:       timetable.FormatClock(iv.Start),
				End:         timetable.FormatClock(iv.End),
				StartMin:    iv.Start,
				EndMin:      iv.End,
			})
		}
	}

	out := make([]TimetableDay, 0, len(days))
	for _, day := range days {
		entries := byDay[day]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].StartMin != entries[j].StartMin {
				return entries[i].StartMin < entries[j].StartMin
			}
			return entries[i].SectionID < entries[j].SectionID
		})
		out = append(out, TimetableDay{Day: day.String(), Entries: entries})
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, out, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.Error(err))
		}
	}
	return out, nil
}
