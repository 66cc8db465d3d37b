package inquiry

import (
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Inquiry is one user question's trip through the consolidation
// pipeline. A failed inquiry is terminal; retries create a new one.
type Inquiry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ThreadID  string    `gorm:"type:varchar(26);index;not null" json:"thread_id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Context   string    `gorm:"type:text" json:"context,omitempty"`
	Status    Status    `gorm:"type:varchar(16);index;not null" json:"status"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Inquiry) TableName() string { return "inquiries" }

// ProviderReply records one provider's attempt at one inquiry.
// Immutable once persisted.
type ProviderReply struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	InquiryID      string    `gorm:"size:36;index;not null" json:"inquiry_id"`
	ProviderID     string    `gorm:"size:36;not null" json:"provider_id"`
	Answer         string    `gorm:"type:text" json:"answer"`
	Confidence     float64   `gorm:"not null" json:"confidence"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	TokensUsed     int       `json:"tokens_used"`
	CostCents      int64     `json:"cost_cents"`
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	Metadata       string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ProviderReply) TableName() string { return "provider_replies" }

// Usable reports whether the reply may participate in consolidation.
// An error-marked reply is excluded regardless of its confidence.
func (r ProviderReply) Usable() bool {
	return r.Error == "" && strings.TrimSpace(r.Answer) != ""
}

// ConsolidatedAnswer is the single merged answer for a completed
// inquiry. Confidence never exceeds 0.95.
type ConsolidatedAnswer struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	InquiryID   string    `gorm:"size:36;uniqueIndex;not null" json:"inquiry_id"`
	Answer      string    `gorm:"type:text;not null" json:"answer"`
	Confidence  float64   `gorm:"not null" json:"confidence"`
	Sources     string    `gorm:"type:text;not null" json:"-"`
	Methodology string    `gorm:"type:varchar(255)" json:"methodology"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ConsolidatedAnswer) TableName() string { return "consolidated_answers" }

// SourceList decodes the ordered contributing provider ids.
func (a *ConsolidatedAnswer) SourceList() []string {
	var out []string
	_ = json.Unmarshal([]byte(a.Sources), &out)
	return out
}

func (a *ConsolidatedAnswer) setSources(ids []string) {
	raw, _ := json.Marshal(ids)
	a.Sources = string(raw)
}

// ProviderRating is one provider's advisory correctness score for a
// consolidated answer. Ratings never gate inquiry status.
type ProviderRating struct {
	ID                    uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	InquiryID             string    `gorm:"size:36;index;not null" json:"inquiry_id"`
	ProviderID            string    `gorm:"size:36;not null" json:"provider_id"`
	CorrectnessPercentage float64   `gorm:"not null" json:"correctness_percentage"`
	Reasoning             string    `gorm:"type:text" json:"reasoning"`
	// RatedBy mirrors ProviderID today; kept distinct for delegated rating.
	RatedBy   string    `gorm:"size:36;not null" json:"rated_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProviderRating) TableName() string { return "provider_ratings" }

// AnswerMetadata is attached to the assistant chat message.
type AnswerMetadata struct {
	Confidence  float64  `json:"confidence"`
	Sources     []string `json:"sources"`
	Methodology string   `json:"methodology"`
}
