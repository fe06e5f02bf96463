package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// Exam events
	EventExamPublished EventType = "exam.published"
	EventExamDeleted   EventType = "exam.deleted"

	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptCompleted EventType = "attempt.completed"
	EventAttemptExpired   EventType = "attempt.expired"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Exam notification event payloads

type ExamPublishedEvent struct {
	ExamID          uint   `json:"exam_id"`
	ExamTitle       string `json:"exam_title"`
	DurationMinutes int    `json:"duration_minutes"`
	Kind            string `json:"kind"`
	CreatorID       string `json:"creator_id"`
}

type ExamDeletedEvent struct {
	ExamID    uint      `json:"exam_id"`
	ExamTitle string    `json:"exam_title"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Attempt notification event payloads

type AttemptStartedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	ExamTitle   string    `json:"exam_title"`
	CandidateID string    `json:"candidate_id"`
	StartedAt   time.Time `json:"started_at"`
	Deadline    time.Time `json:"deadline"`
}

type AttemptCompletedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	ExamTitle   string    `json:"exam_title"`
	CandidateID string    `json:"candidate_id"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
	Category    *string   `json:"category,omitempty"`
	Conclusion  *string   `json:"conclusion,omitempty"`
}

type AttemptExpiredEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	ExamTitle   string    `json:"exam_title"`
	CandidateID string    `json:"candidate_id"`
	ExpiredAt   time.Time `json:"expired_at"`
	Score       int       `json:"score"`
}

// Event factory functions

func NewExamPublishedEvent(examID uint, title string, durationMinutes int, kind string, creatorID string) *NotificationEvent {
	return &NotificationEvent{
		ID:        generateEventID(),
		Type:      EventExamPublished,
		Timestamp: time.Now(),
		Source:    "assessment-service",
		Version:   "1.0",
		Data: ExamPublishedEvent{
			ExamID:          examID,
			ExamTitle:       title,
			DurationMinutes: durationMinutes,
			Kind:            kind,
			CreatorID:       creatorID,
		},
	}
}

func NewExamDeletedEvent(examID uint, title string, deletedBy string, deletedAt time.Time) *NotificationEvent {
	return &NotificationEvent{
		ID:        generateEventID(),
		Type:      EventExamDeleted,
		Timestamp: time.Now(),
		Source:    "assessment-service",
		Version:   "1.0",
		Data: ExamDeletedEvent{
			ExamID:    examID,
			ExamTitle: title,
			DeletedBy: deletedBy,
			DeletedAt: deletedAt,
		},
	}
}

func NewAttemptStartedEvent(attemptID, examID uint, title string, candidateID string, startedAt, deadline time.Time) *NotificationEvent {
	return &NotificationEvent{
		ID:        generateEventID(),
		Type:      EventAttemptStarted,
		Timestamp: time.Now(),
		Source:    "assessment-service",
		Version:   "1.0",
		Data: AttemptStartedEvent{
			AttemptID:   attemptID,
			ExamID:      examID,
			ExamTitle:   title,
			CandidateID: candidateID,
			StartedAt:   startedAt,
			Deadline:    deadline,
		},
	}
}

func NewAttemptCompletedEvent(attemptID, examID uint, title string, candidateID string, completedAt time.Time, score int, category, conclusion *string) *NotificationEvent {
	return &NotificationEvent{
		ID:        generateEventID(),
		Type:      EventAttemptCompleted,
		Timestamp: time.Now(),
		Source:    "assessment-service",
		Version:   "1.0",
		Data: AttemptCompletedEvent{
			AttemptID:   attemptID,
			ExamID:      examID,
			ExamTitle:   title,
			CandidateID: candidateID,
			CompletedAt: completedAt,
			Score:       score,
			Category:    category,
			Conclusion:  conclusion,
		},
	}
}

func NewAttemptExpiredEvent(attemptID, examID uint, title string, candidateID string, expiredAt time.Time, score int) *NotificationEvent {
	return &NotificationEvent{
		ID:        generateEventID(),
		Type:      EventAttemptExpired,
		Timestamp: time.Now(),
		Source:    "assessment-service",
		Version:   "1.0",
		Data: AttemptExpiredEvent{
			AttemptID:   attemptID,
			ExamID:      examID,
			ExamTitle:   title,
			CandidateID: candidateID,
			ExpiredAt:   expiredAt,
			Score:       score,
		},
	}
}

// generateEventID returns a unique event ID
func generateEventID() string {
	return uuid.NewString()
}
