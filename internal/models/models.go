package models

import (
	"time"

	"parcours/internal/content"
)

// ProfileInput ist das Profil, das beim Absenden an das Backend geht
type ProfileInput struct {
	UserID    string `json:"user_id,omitempty"`
	Job       string `json:"job"`
	Sector    string `json:"sector"`
	AILevel   string `json:"ai_level"`
	ToolsUsed *Tools `json:"tools_used,omitempty"`
	WorkStyle string `json:"work_style,omitempty"`
}

// Tools bündelt die Werkzeugliste und die erweiterten Angaben, so wie das
// Backend sie als JSON speichert
type Tools struct {
	List   []string      `json:"list"`
	Extras ProfileExtras `json:"extras"`
}

// ProfileExtras sind die optionalen erweiterten Profilangaben
type ProfileExtras struct {
	Seniority                string `json:"seniority,omitempty"`
	ExperienceYears          *int   `json:"experience_years,omitempty"`
	CompanySize              string `json:"company_size,omitempty"`
	PreferredModels          string `json:"preferred_models,omitempty"`
	LearningGoals            string `json:"learning_goals,omitempty"`
	AvailabilityHoursPerWeek *int   `json:"availability_hours_per_week,omitempty"`
	Timezone                 string `json:"timezone,omitempty"`
	Language                 string `json:"language,omitempty"`
	Industries               string `json:"industries,omitempty"`
	ComplianceNeeds          string `json:"compliance_needs,omitempty"`
	DataPrivacyNotes         string `json:"data_privacy_notes,omitempty"`
	HardwareConstraints      string `json:"hardware_constraints,omitempty"`
	PreferredWorkflows       string `json:"preferred_workflows,omitempty"`
}

// UserRef ist die Antwort von Auth- und Profil-Endpunkten
type UserRef struct {
	UserID string `json:"user_id"`
}

// PipelineRun ist das Ergebnis eines Pipeline-Laufs
type PipelineRun struct {
	CourseID string `json:"course_id"`
	Title    string `json:"title,omitempty"`
}

// ModuleSummary ist ein Modul in der Kursübersicht
type ModuleSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Objectives  []string `json:"objectives,omitempty"`
	OrderIndex  *int     `json:"orderIndex,omitempty"`
}

// CourseSummary ist die Zusammenfassung am Ende eines Kurses
type CourseSummary struct {
	CertificateText string   `json:"certificate_text,omitempty"`
	SkillsGained    []string `json:"skills_gained,omitempty"`
	Profile         any      `json:"profile,omitempty"`
}

// Course ist das Kurs-Aggregat
type Course struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Modules       []ModuleSummary `json:"modules"`
	Summary       *CourseSummary  `json:"summary,omitempty"`
	BestPractices []string        `json:"best_practices,omitempty"`
}

// LessonSummary ist eine Lektion in der Modulansicht
type LessonSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	OrderIndex *int   `json:"orderIndex,omitempty"`
}

// Module ist das Modul-Aggregat. Quizfragen gehören zum Modul.
type Module struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description,omitempty"`
	Objectives     []string               `json:"objectives"`
	OrderIndex     *int                   `json:"orderIndex,omitempty"`
	Lessons        []LessonSummary        `json:"lessons"`
	Quiz           []content.QuizQuestion `json:"quiz"`
	ChatbotContext string                 `json:"chatbot_context,omitempty"`
}

// ModuleRef ist der Rückverweis einer Lektion auf ihr Modul
type ModuleRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Lesson ist eine Lektion; Content ist Freitext oder ein serialisiertes
// Lektionsdokument und wird bei develop/continue komplett ersetzt
type Lesson struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	OrderIndex *int       `json:"orderIndex,omitempty"`
	Module     *ModuleRef `json:"module,omitempty"`
}

// AITool ist ein empfohlenes Werkzeug
type AITool struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	UseCase  string `json:"use_case,omitempty"`
}

// ToolsPractices sind Werkzeuge und Praktiken für das Dashboard
type ToolsPractices struct {
	AITools       []AITool `json:"ai_tools"`
	BestPractices []string `json:"best_practices"`
}

// UserCourse ist ein Eintrag der Kursliste eines Nutzers
type UserCourse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"createdAt"`
	ModulesCount int    `json:"modulesCount"`
}

// ChatMessage repräsentiert eine Nachricht im Modul-Chat
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ModuleID  string    `json:"module_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LessonSnapshot ist der zuletzt gesehene Rohinhalt einer Lektion
type LessonSnapshot struct {
	LessonID  string    `json:"lesson_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
