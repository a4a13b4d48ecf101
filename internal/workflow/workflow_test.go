package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderscope/tenderscope/internal/catalog"
	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
)

type fakePortal struct {
	tender    model.TenderInfo
	tenderErr error
	docs      []model.TenderDocument
}

func (p *fakePortal) FetchTender(_ context.Context, tenderID string) (model.TenderInfo, error) {
	if p.tenderErr != nil {
		return model.TenderInfo{}, p.tenderErr
	}
	return p.tender, nil
}

func (p *fakePortal) ListDocuments(context.Context, string) ([]model.TenderDocument, error) {
	return p.docs, nil
}

func (p *fakePortal) DownloadDocument(_ context.Context, _ string, doc model.TenderDocument) ([]byte, string, error) {
	return []byte("%PDF " + doc.Name), ".pdf", nil
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractText(_ context.Context, _ string, rowID int, _ []byte) (string, error) {
	return fmt.Sprintf("texto del documento %d", rowID), nil
}

type fakeClassifier struct {
	ids []int
	err error
}

func (c *fakeClassifier) Classify(context.Context, model.TenderInfo, []model.InvestigationTask) ([]int, error) {
	return c.ids, c.err
}

type fakeInvestigator struct {
	failCodes   map[string]bool
	rejectCodes map[string]bool
	delays      map[string]time.Duration
}

func (i *fakeInvestigator) Investigate(ctx context.Context, _ model.TenderInfo, _ []model.TenderDocument, task model.InvestigationTask) (model.TaskInvestigationOutput, error) {
	if d, ok := i.delays[task.Code]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return model.TaskInvestigationOutput{}, ctx.Err()
		}
	}
	if i.failCodes[task.Code] {
		return model.TaskInvestigationOutput{}, errors.New("agent crashed")
	}
	return model.TaskInvestigationOutput{
		TaskID:               task.ID,
		TaskCode:             task.Code,
		TaskName:             task.Name,
		ValidationPassed:     !i.rejectCodes[task.Code],
		Findings:             []model.Anomaly{},
		InvestigationSummary: "Sin hallazgos",
	}, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (s *fakeSummarizer) Summarize(context.Context, model.TenderInfo, []model.TaskInvestigationOutput) (string, error) {
	return s.summary, s.err
}

type recordingEmitter struct {
	mu  sync.Mutex
	obs []model.Observation
}

func (e *recordingEmitter) Emit(_ context.Context, _ string, obs model.Observation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.obs = append(e.obs, obs)
	return nil
}

func (e *recordingEmitter) events() []model.Observation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Observation(nil), e.obs...)
}

type countingCleaner struct{ calls int }

func (c *countingCleaner) CleanupOlderThan(time.Duration) { c.calls++ }

func testEngine(p Portal, c *fakeClassifier, i *fakeInvestigator, s *fakeSummarizer, e Emitter, cl Cleaner) *Engine {
	log := logging.New(io.Discard, "workflow", logging.LevelError)
	return New(p, fakeExtractor{}, c, i, s, e, cl, Options{FallbackCount: 5, CacheMaxAge: time.Hour}, log)
}

func TestRun_HappyPath(t *testing.T) {
	portal := &fakePortal{
		tender: model.TenderInfo{TenderID: "T1", Name: "Licitación de prueba"},
		docs: []model.TenderDocument{
			{RowID: 0, Name: "Bases Administrativas.pdf"},
			{RowID: 1, Name: "Bases Técnicas.pdf"},
		},
	}
	emitter := &recordingEmitter{}
	cleaner := &countingCleaner{}
	eng := testEngine(portal,
		&fakeClassifier{ids: []int{3, 1}},
		&fakeInvestigator{},
		&fakeSummarizer{summary: "Todo en orden."},
		emitter, cleaner)

	res, err := eng.Run(context.Background(), "T1", "s1")
	require.NoError(t, err)

	require.Len(t, res.Tasks, 2)
	assert.Equal(t, 1, res.Tasks[0].TaskID, "results sorted by task id")
	assert.Equal(t, 3, res.Tasks[1].TaskID)
	assert.Equal(t, "Todo en orden.", res.Summary)
	assert.Contains(t, res.Tender.Bases, "texto del documento 0")
	assert.Contains(t, res.Tender.BasesTecnicas, "texto del documento 1")
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, cleaner.calls, "post-run cache sweep runs once")

	events := emitter.events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, model.ObservationResult, last["type"])
	assert.Equal(t, "completed", last["status"])
	tasks, ok := last["tasks_by_id"].([]any)
	require.True(t, ok)
	assert.Len(t, tasks, 2)
}

func TestRun_AggregationOrderIndependentOfCompletion(t *testing.T) {
	// Lower ids finish last; the aggregate must still come back ordered.
	inv := &fakeInvestigator{delays: map[string]time.Duration{
		"H-01": 30 * time.Millisecond,
		"H-02": 20 * time.Millisecond,
		"H-03": 10 * time.Millisecond,
	}}
	eng := testEngine(&fakePortal{tender: model.TenderInfo{TenderID: "T1", Name: "x"}},
		&fakeClassifier{ids: []int{1, 2, 3}}, inv,
		&fakeSummarizer{summary: "ok"}, &recordingEmitter{}, nil)

	res, err := eng.Run(context.Background(), "T1", "s1")
	require.NoError(t, err)
	require.Len(t, res.Tasks, 3)
	assert.True(t, sort.SliceIsSorted(res.Tasks, func(a, b int) bool {
		return res.Tasks[a].TaskID < res.Tasks[b].TaskID
	}))
}

func TestRun_TaskFailureIsContained(t *testing.T) {
	inv := &fakeInvestigator{failCodes: map[string]bool{"H-02": true}}
	eng := testEngine(&fakePortal{tender: model.TenderInfo{TenderID: "T1", Name: "x"}},
		&fakeClassifier{ids: []int{1, 2, 3}}, inv,
		&fakeSummarizer{summary: "ok"}, &recordingEmitter{}, nil)

	res, err := eng.Run(context.Background(), "T1", "s1")
	require.NoError(t, err)
	require.Len(t, res.Tasks, 3, "no task is lost to a failure")

	failed := res.Tasks[1]
	assert.Equal(t, "H-02", failed.TaskCode)
	assert.False(t, failed.ValidationPassed)
	assert.Empty(t, failed.Findings)
	assert.Contains(t, failed.InvestigationSummary, "Investigation failed: ")

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "H-02")
}

func TestRun_SevereFailureIsHighlighted(t *testing.T) {
	// H-01 is a critical check; a non-passing verdict on it warrants an
	// extra warning in the stream. H-04-2 is medium and gets none.
	inv := &fakeInvestigator{rejectCodes: map[string]bool{"H-01": true, "H-04-2": true}}
	emitter := &recordingEmitter{}
	eng := testEngine(&fakePortal{tender: model.TenderInfo{TenderID: "T1", Name: "x"}},
		&fakeClassifier{ids: []int{1, 4}}, inv,
		&fakeSummarizer{summary: "ok"}, emitter, nil)

	res, err := eng.Run(context.Background(), "T1", "s1")
	require.NoError(t, err)
	require.Len(t, res.Tasks, 2)

	var warnings []string
	for _, obs := range emitter.events() {
		msg, _ := obs["message"].(string)
		if strings.Contains(msg, "Atención") {
			warnings = append(warnings, fmt.Sprintf("%v %s", obs["task_code"], msg))
		}
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "H-01")
	assert.Contains(t, warnings[0], "critical")
}

func TestRun_ClassifierFallback(t *testing.T) {
	eng := testEngine(&fakePortal{tender: model.TenderInfo{TenderID: "T1", Name: "x"}},
		&fakeClassifier{err: errors.New("model unavailable")},
		&fakeInvestigator{},
		&fakeSummarizer{summary: "ok"}, &recordingEmitter{}, nil)

	res, err := eng.Run(context.Background(), "T1", "s1")
	require.NoError(t, err)
	require.Len(t, res.Tasks, 5, "fallback selects the catalog prefix")
	want := catalog.All()[:5]
	for i, task := range res.Tasks {
		assert.Equal(t, want[i].ID, task.TaskID)
	}
}

func TestRun_PortalFailureUsesPlaceholder(t *testing.T) {
	eng := testEngine(&fakePortal{tenderErr: errors.New("portal down")},
		&fakeClassifier{ids: []int{1}},
		&fakeInvestigator{},
		&fakeSummarizer{summary: "ok"}, &recordingEmitter{}, nil)

	res, err := eng.Run(context.Background(), "9999-1-LE26", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Tender 9999-1-LE26", res.Tender.Name)
	assert.Contains(t, res.Tender.Bases, "Error fetching tender data")
	require.Len(t, res.Tasks, 1)
}

func TestRun_SummarizerFallback(t *testing.T) {
	inv := &fakeInvestigator{failCodes: map[string]bool{"H-01": true}}
	eng := testEngine(&fakePortal{tender: model.TenderInfo{TenderID: "T1", Name: "x"}},
		&fakeClassifier{ids: []int{1, 2}}, inv,
		&fakeSummarizer{err: errors.New("summary model down")}, &recordingEmitter{}, nil)

	res, err := eng.Run(context.Background(), "T1", "s1")
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "1/2", "mechanical summary reports pass/fail counts")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := testEngine(&fakePortal{tender: model.TenderInfo{TenderID: "T1", Name: "x"}},
		&fakeClassifier{ids: []int{1}},
		&fakeInvestigator{},
		&fakeSummarizer{summary: "ok"}, &recordingEmitter{}, nil)

	_, err := eng.Run(ctx, "T1", "s1")
	assert.Error(t, err)
}
