package seed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dennisdiepolder/callscope/internal/types"
)

// Options controls the size of a generated dataset
type Options struct {
	Projects int
	Agents   int
	Calls    int
	// Days is how far back call dates are spread from Now
	Days int
	Now  time.Time
}

// Dataset is one tenant's worth of demo documents
type Dataset struct {
	Projects []types.ProjectRecord
	Agents   []types.AgentRecord
	Calls    []types.CallRecord
}

// durationBand is a call length range in seconds
type durationBand struct {
	min, max float64
}

// Distribution: mostly 1-10 minute calls with a long tail
var (
	durationBands = []durationBand{
		{3, 10}, {10, 30}, {30, 60}, {60, 180}, {180, 300},
		{300, 600}, {600, 1200}, {1200, 1800}, {1800, 3600},
	}
	durationWeights = []int{4, 8, 10, 25, 20, 18, 9, 4, 2}

	projectStatuses      = []types.ProjectStatus{types.ProjectActive, types.ProjectPaused, types.ProjectArchived}
	projectStatusWeights = []int{75, 15, 10}

	callStatuses      = []types.CallStatus{types.CallStatusCompleted, types.CallStatusFailed, types.CallStatusProcessing}
	callStatusWeights = []int{92, 5, 3}

	departments = []string{"Sales", "Support", "Technical", "Retention"}
)

// Generator creates fake agents, projects and scored calls
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. The same seed yields the same dataset.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate builds a complete dataset
func (g *Generator) Generate(opts Options) Dataset {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Days < 1 {
		opts.Days = 90
	}
	if opts.Projects < 1 {
		opts.Projects = 1
	}

	projects := g.Projects(opts.Projects, opts.Now)
	agents := g.Agents(opts.Agents, projects, opts.Now)
	calls := g.Calls(opts.Calls, agents, opts.Now, opts.Days)
	return Dataset{Projects: projects, Agents: agents, Calls: calls}
}

// Projects creates n projects with unique names
func (g *Generator) Projects(n int, now time.Time) []types.ProjectRecord {
	projects := make([]types.ProjectRecord, n)
	for i := range projects {
		dept := departments[i%len(departments)]
		projects[i] = types.ProjectRecord{
			ProjectName:       fmt.Sprintf("%s-Team-%d", dept, i/len(departments)+1),
			CompanyName:       g.faker.Company(),
			ClientCompanyName: g.faker.Company(),
			Description:       g.faker.Sentence(8),
			Status:            weightedChoice(g.faker, projectStatuses, projectStatusWeights),
			CreatedAt:         now.AddDate(0, 0, -g.faker.Number(30, 720)).UTC().Truncate(time.Second),
		}
	}
	return projects
}

// Agents creates n agents spread round-robin over projects
func (g *Generator) Agents(n int, projects []types.ProjectRecord, now time.Time) []types.AgentRecord {
	agents := make([]types.AgentRecord, n)
	for i := range agents {
		first, last := g.faker.FirstName(), g.faker.LastName()
		username := fmt.Sprintf("%s.%s%d", strings.ToLower(first[:1]), strings.ToLower(last), i+1)
		agent := types.AgentRecord{
			Username:  username,
			FirstName: first,
			LastName:  last,
			Email:     username + "@example.com",
			CreatedAt: now.AddDate(0, 0, -g.faker.Number(1, 365)).UTC().Truncate(time.Second),
		}
		if len(projects) > 0 {
			agent.Project = projects[i%len(projects)].ProjectName
		}
		agents[i] = agent
	}
	return agents
}

// Calls creates n scored calls for random agents within the last days
func (g *Generator) Calls(n int, agents []types.AgentRecord, now time.Time, days int) []types.CallRecord {
	if len(agents) == 0 {
		return nil
	}
	calls := make([]types.CallRecord, n)
	for i := range calls {
		agent := agents[g.faker.Number(0, len(agents)-1)]
		calls[i] = g.call(agent, now, days)
	}
	return calls
}

func (g *Generator) call(agent types.AgentRecord, now time.Time, days int) types.CallRecord {
	band := weightedChoice(g.faker, durationBands, durationWeights)
	duration := round2(g.faker.Float64Range(band.min, band.max))
	processed := now.UTC().Add(-time.Duration(g.faker.Float64Range(0, float64(days)*24)) * time.Hour).Truncate(time.Second)

	segments := g.segments(duration)
	talk, deadAir := totals(segments, duration)

	var sentiment float64
	for _, s := range segments {
		sentiment += s.SentimentScore
	}
	if len(segments) > 0 {
		sentiment = round2(sentiment / float64(len(segments)))
	}

	return types.CallRecord{
		AgentInfo: types.AgentInfo{
			Username:    agent.Username,
			FirstName:   agent.FirstName,
			LastName:    agent.LastName,
			ProjectName: agent.Project,
		},
		DayProcessed:         processed.Format(time.RFC3339),
		Score:                round2(g.faker.Float64Range(40, 100)),
		AverageSentiment:     sentiment,
		TotalTalkDuration:    talk,
		TotalDeadAirDuration: deadAir,
		FileInfo: types.FileInfo{
			FileName: fmt.Sprintf("%s_%s.wav", agent.Username, processed.Format("20060102T150405")),
			Duration: duration,
		},
		ProcessingTime: round2(duration * g.faker.Float64Range(0.05, 0.3)),
		Segments:       segments,
		Status:         weightedChoice(g.faker, callStatuses, callStatusWeights),
	}
}

// segments alternates speakers with short pauses until the call ends
func (g *Generator) segments(duration float64) []types.Segment {
	var out []types.Segment
	cursor := 0.0
	speaker := 0
	for cursor < duration {
		start := cursor + g.faker.Float64Range(0, 2.5)
		if start >= duration {
			break
		}
		end := start + g.faker.Float64Range(1.5, 20)
		if end > duration {
			end = duration
		}
		out = append(out, types.Segment{
			Speaker:        types.SpeakerChannels[speaker],
			Start:          round2(start),
			End:            round2(end),
			Transcription:  g.faker.Sentence(g.faker.Number(4, 16)),
			SentimentScore: round2(g.faker.Float64Range(-1, 1)),
		})
		cursor = end
		speaker = 1 - speaker
	}
	return out
}

// totals returns talk time per channel and the silence of each channel
func totals(segments []types.Segment, duration float64) (talk, deadAir map[types.SpeakerChannel]float64) {
	talk = make(map[types.SpeakerChannel]float64, len(types.SpeakerChannels))
	deadAir = make(map[types.SpeakerChannel]float64, len(types.SpeakerChannels))
	for _, ch := range types.SpeakerChannels {
		talk[ch] = 0
	}
	for _, s := range segments {
		talk[s.Speaker] += s.End - s.Start
	}
	for _, ch := range types.SpeakerChannels {
		talk[ch] = round2(talk[ch])
		deadAir[ch] = round2(max(duration-talk[ch], 0))
	}
	return talk, deadAir
}

// weightedChoice selects an item based on weights
func weightedChoice[T any](f *gofakeit.Faker, items []T, weights []int) T {
	total := 0
	for _, w := range weights {
		total += w
	}

	choice := f.Number(0, total-1)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if choice < cumulative {
			return items[i]
		}
	}
	return items[0]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
