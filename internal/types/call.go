package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// CallStatus represents the lifecycle state of a processed call
type CallStatus string

const (
	CallStatusPending    CallStatus = "pending"
	CallStatusProcessing CallStatus = "processing"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// SpeakerChannel identifies one of the two audio channels of a call
type SpeakerChannel string

const (
	SpeakerAgent  SpeakerChannel = "SPEAKER_00"
	SpeakerClient SpeakerChannel = "SPEAKER_01"
)

// SpeakerChannels lists the channels in their fixed order
var SpeakerChannels = []SpeakerChannel{SpeakerAgent, SpeakerClient}

// Valid reports whether c is one of the known channels
func (c SpeakerChannel) Valid() bool {
	return c == SpeakerAgent || c == SpeakerClient
}

// AgentInfo is the denormalized copy of the agent stored on every call
type AgentInfo struct {
	Username    string `json:"username" bson:"username"`
	FirstName   string `json:"first_name" bson:"first_name"`
	LastName    string `json:"last_name" bson:"last_name"`
	ProjectName string `json:"project_name" bson:"project_name"`
}

// FileInfo describes the recording a call was scored from
type FileInfo struct {
	FileName string  `json:"file_name,omitempty" bson:"file_name,omitempty"`
	Duration float64 `json:"duration" bson:"duration"` // seconds
}

// Segment is a single utterance of the transcript
type Segment struct {
	Speaker        SpeakerChannel `json:"speaker" bson:"speaker"`
	Start          float64        `json:"start" bson:"start"` // seconds from call start
	End            float64        `json:"end" bson:"end"`
	Transcription  string         `json:"transcription" bson:"transcription"`
	SentimentScore float64        `json:"sentiment_score" bson:"sentiment_score"`
}

// CallRecord is a scored call as written by the ingestion pipeline.
// DayProcessed is an ISO-8601 UTC string; range filters compare it lexically.
type CallRecord struct {
	ID                   primitive.ObjectID         `json:"id" bson:"_id,omitempty"`
	AgentInfo            AgentInfo                  `json:"agent_info" bson:"agent_info"`
	DayProcessed         string                     `json:"day_processed" bson:"day_processed"`
	Score                float64                    `json:"score" bson:"score"`
	AverageSentiment     float64                    `json:"average_sentiment" bson:"average_sentiment"`
	TotalDeadAirDuration map[SpeakerChannel]float64 `json:"total_dead_air_duration" bson:"total_dead_air_duration"`
	TotalTalkDuration    map[SpeakerChannel]float64 `json:"total_talk_duration" bson:"total_talk_duration"`
	FileInfo             FileInfo                   `json:"file_info" bson:"file_info"`
	ProcessingTime       float64                    `json:"processing_time_seconds" bson:"processing_time_seconds"`
	Segments             []Segment                  `json:"segments,omitempty" bson:"segments,omitempty"`
	Status               CallStatus                 `json:"status" bson:"status"`
}

// CallSummary is the list projection of a call (no transcript)
type CallSummary struct {
	ID               primitive.ObjectID `json:"id" bson:"_id"`
	AgentInfo        AgentInfo          `json:"agent_info" bson:"agent_info"`
	DayProcessed     string             `json:"day_processed" bson:"day_processed"`
	Score            float64            `json:"score" bson:"score"`
	AverageSentiment float64            `json:"average_sentiment" bson:"average_sentiment"`
	FileInfo         FileInfo           `json:"file_info" bson:"file_info"`
	Status           CallStatus         `json:"status" bson:"status"`
}
