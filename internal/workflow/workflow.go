// Package workflow runs the tender investigation pipeline: fetch evidence,
// select checks, fan the investigations out, and aggregate one report.
//
// Every stage degrades instead of aborting. A portal failure substitutes a
// placeholder tender, a classifier failure selects a fixed catalog prefix,
// a failed investigation becomes a failure-shaped verdict, and a failed
// summary falls back to a mechanical one. Only context cancellation stops
// a run.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tenderscope/tenderscope/internal/agent"
	"github.com/tenderscope/tenderscope/internal/catalog"
	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
)

// Portal supplies tender metadata and attachments.
type Portal interface {
	FetchTender(ctx context.Context, tenderID string) (model.TenderInfo, error)
	ListDocuments(ctx context.Context, tenderID string) ([]model.TenderDocument, error)
	DownloadDocument(ctx context.Context, tenderID string, doc model.TenderDocument) ([]byte, string, error)
}

// TextExtractor turns attachment bytes into page text.
type TextExtractor interface {
	ExtractText(ctx context.Context, tenderID string, rowID int, content []byte) (string, error)
}

// Emitter receives the progress narration of a run.
type Emitter interface {
	Emit(ctx context.Context, sessionID string, obs model.Observation) error
}

// Cleaner is the post-run cache sweep.
type Cleaner interface {
	CleanupOlderThan(maxAge time.Duration)
}

// Result is the aggregated outcome of one run. Errors lists the contained
// soft failures; a non-empty list marks a degraded-but-complete run.
type Result struct {
	Tender  model.TenderInfo
	Tasks   []model.TaskInvestigationOutput
	Summary string
	Errors  []string
}

// errList accumulates soft-failure notes from concurrent stages.
type errList struct {
	mu    sync.Mutex
	items []string
}

func (l *errList) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, fmt.Sprintf(format, args...))
}

func (l *errList) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

// Engine wires the pipeline collaborators.
type Engine struct {
	portal       Portal
	extractor    TextExtractor
	classifier   agent.Classifier
	investigator agent.Investigator
	summarizer   agent.Summarizer
	emitter      Emitter
	cleaner      Cleaner

	fallbackCount int
	cacheMaxAge   time.Duration
	log           *logging.Logger
}

// Options carries the engine tunables.
type Options struct {
	// FallbackCount is the catalog prefix length used when classification
	// fails.
	FallbackCount int
	// CacheMaxAge drives the post-run cleanup sweep; zero disables it.
	CacheMaxAge time.Duration
}

// New builds an Engine. cleaner may be nil to skip the post-run sweep.
func New(p Portal, x TextExtractor, c agent.Classifier, i agent.Investigator, s agent.Summarizer, e Emitter, cleaner Cleaner, opts Options, log *logging.Logger) *Engine {
	fallback := opts.FallbackCount
	if fallback <= 0 {
		fallback = 5
	}
	return &Engine{
		portal:        p,
		extractor:     x,
		classifier:    c,
		investigator:  i,
		summarizer:    s,
		emitter:       e,
		cleaner:       cleaner,
		fallbackCount: fallback,
		cacheMaxAge:   opts.CacheMaxAge,
		log:           log,
	}
}

func (e *Engine) emit(ctx context.Context, sessionID, message, taskCode string) {
	if err := e.emitter.Emit(ctx, sessionID, model.LogObservation(message, taskCode)); err != nil {
		e.log.Warnf("emit_failed session=%s error=%v", sessionID, err)
	}
}

// Run executes the full pipeline for one tender and emits the terminal
// result event. It returns an error only when the context is cancelled
// before the result is produced.
func (e *Engine) Run(ctx context.Context, tenderID, sessionID string) (Result, error) {
	started := time.Now()
	e.log.Infof("run_started tender=%s session=%s", tenderID, sessionID)
	errs := &errList{}

	tender, documents := e.fetchTenderData(ctx, tenderID, sessionID, errs)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run cancelled: %w", err)
	}

	tasks := catalog.All()
	e.emit(ctx, sessionID, fmt.Sprintf("Catálogo cargado: %d tareas de investigación disponibles", len(tasks)), "")

	selected := e.classify(ctx, sessionID, tender, tasks, errs)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run cancelled: %w", err)
	}

	results := e.distribute(ctx, sessionID, tender, documents, selected, errs)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run cancelled: %w", err)
	}

	// Aggregation order is by task id, regardless of completion order.
	sort.Slice(results, func(a, b int) bool { return results[a].TaskID < results[b].TaskID })

	summary := e.summarize(ctx, sessionID, tender, results, errs)

	res := Result{Tender: tender, Tasks: results, Summary: summary, Errors: errs.all()}
	if err := e.emitter.Emit(ctx, sessionID, model.ResultObservation(results, summary)); err != nil {
		e.log.Warnf("emit_result_failed session=%s error=%v", sessionID, err)
	}

	if e.cleaner != nil && e.cacheMaxAge > 0 {
		e.cleaner.CleanupOlderThan(e.cacheMaxAge)
	}

	e.log.Infof("run_finished tender=%s session=%s tasks=%d elapsed=%s", tenderID, sessionID, len(results), time.Since(started).Round(time.Millisecond))
	return res, nil
}

// fetchTenderData pulls metadata and attachment text, substituting the
// placeholder tender when the portal is unreachable.
func (e *Engine) fetchTenderData(ctx context.Context, tenderID, sessionID string, errs *errList) (model.TenderInfo, []model.TenderDocument) {
	e.emit(ctx, sessionID, "Obteniendo datos de la licitación "+tenderID+"...", "")

	tender, err := e.portal.FetchTender(ctx, tenderID)
	if err != nil {
		e.log.Warnf("fetch_tender_failed tender=%s error=%v", tenderID, err)
		errs.add("fetch tender: %v", err)
		e.emit(ctx, sessionID, "No se pudo obtener la ficha de la licitación; se continúa con datos mínimos", "")
		return model.PlaceholderTender(tenderID, err), nil
	}

	docs, err := e.portal.ListDocuments(ctx, tenderID)
	if err != nil {
		e.log.Warnf("list_documents_failed tender=%s error=%v", tenderID, err)
		errs.add("list documents: %v", err)
		e.emit(ctx, sessionID, "No se pudieron listar los anexos; se continúa sin documentos", "")
		return tender, nil
	}
	e.emit(ctx, sessionID, fmt.Sprintf("Descargando %d documentos anexos...", len(docs)), "")

	var fetched []model.TenderDocument
	for _, doc := range docs {
		content, _, err := e.portal.DownloadDocument(ctx, tenderID, doc)
		if err != nil {
			e.log.Warnf("download_failed tender=%s row=%d error=%v", tenderID, doc.RowID, err)
			errs.add("download document %d: %v", doc.RowID, err)
			continue
		}
		text, err := e.extractor.ExtractText(ctx, tenderID, doc.RowID, content)
		if err != nil {
			e.log.Warnf("extract_failed tender=%s row=%d error=%v", tenderID, doc.RowID, err)
			errs.add("extract document %d: %v", doc.RowID, err)
			continue
		}
		doc.Text = text
		fetched = append(fetched, doc)
	}

	fillBases(&tender, fetched)
	return tender, fetched
}

// fillBases routes extracted document text into the tender's specification
// fields: documents named as technical specs feed BasesTecnicas, the rest
// concatenate into Bases.
func fillBases(tender *model.TenderInfo, docs []model.TenderDocument) {
	var general, technical []string
	for _, d := range docs {
		name := strings.ToLower(d.Name)
		if strings.Contains(name, "técnica") || strings.Contains(name, "tecnica") {
			technical = append(technical, d.Text)
		} else {
			general = append(general, d.Text)
		}
	}
	if len(general) > 0 {
		tender.Bases = strings.Join(general, "\n\n")
	}
	if len(technical) > 0 {
		tender.BasesTecnicas = strings.Join(technical, "\n\n")
	}
}

// classify selects the checks to run, falling back to the catalog prefix
// when the classifier fails.
func (e *Engine) classify(ctx context.Context, sessionID string, tender model.TenderInfo, tasks []model.InvestigationTask, errs *errList) []model.InvestigationTask {
	e.emit(ctx, sessionID, "Clasificando tareas relevantes para la licitación...", "")

	ids, err := e.classifier.Classify(ctx, tender, tasks)
	if err != nil {
		e.log.Warnf("classify_failed tender=%s error=%v", tender.TenderID, err)
		errs.add("classify: %v", err)
		ids = agent.FallbackSelection(tasks, e.fallbackCount)
		e.emit(ctx, sessionID, fmt.Sprintf("Clasificación no disponible; se usarán las primeras %d tareas del catálogo", len(ids)), "")
	}

	byID := make(map[int]model.InvestigationTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var selected []model.InvestigationTask
	var codes []string
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			selected = append(selected, t)
			codes = append(codes, t.Code)
		}
	}
	e.emit(ctx, sessionID, fmt.Sprintf("Tareas seleccionadas (%d): %s", len(selected), strings.Join(codes, ", ")), "")
	return selected
}

// distribute fans the selected tasks out to concurrent investigations and
// merges exactly one verdict per task.
func (e *Engine) distribute(ctx context.Context, sessionID string, tender model.TenderInfo, documents []model.TenderDocument, selected []model.InvestigationTask, errs *errList) []model.TaskInvestigationOutput {
	e.emit(ctx, sessionID, fmt.Sprintf("Distribuyendo %d investigaciones en paralelo...", len(selected)), "")

	results := make([]model.TaskInvestigationOutput, 0, len(selected))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range selected {
		task := task
		g.Go(func() error {
			out := e.investigate(gctx, sessionID, tender, documents, task, errs)
			mu.Lock()
			results = append(results, out)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are folded into their verdicts.
	_ = g.Wait()
	return results
}

func (e *Engine) investigate(ctx context.Context, sessionID string, tender model.TenderInfo, documents []model.TenderDocument, task model.InvestigationTask, errs *errList) model.TaskInvestigationOutput {
	corrID := fmt.Sprintf("task_%d_%s", task.ID, uuid.NewString()[:8])
	e.log.Debugf("investigate_started corr=%s code=%s", corrID, task.Code)
	e.emit(ctx, sessionID, fmt.Sprintf("Investigando %s: %s", task.Code, task.Name), task.Code)

	out, err := e.investigator.Investigate(ctx, tender, documents, task)
	if err != nil {
		e.log.Warnf("investigate_failed corr=%s code=%s error=%v", corrID, task.Code, err)
		errs.add("investigate %s: %v", task.Code, err)
		e.emit(ctx, sessionID, fmt.Sprintf("La investigación %s falló: %v", task.Code, err), task.Code)
		return model.FailedInvestigation(task, err.Error())
	}

	verdict := "cumple"
	if !out.ValidationPassed {
		verdict = "no cumple"
	}
	e.emit(ctx, sessionID, fmt.Sprintf("Investigación %s completada (%s, %d hallazgos)", task.Code, verdict, len(out.Findings)), task.Code)
	if !out.ValidationPassed && task.Severity.AtLeast(model.SeverityHigh) {
		e.emit(ctx, sessionID, fmt.Sprintf("Atención: la verificación %s es de severidad %s y no se cumple", task.Code, task.Severity), task.Code)
	}
	return out
}

func (e *Engine) summarize(ctx context.Context, sessionID string, tender model.TenderInfo, results []model.TaskInvestigationOutput, errs *errList) string {
	e.emit(ctx, sessionID, "Generando resumen ejecutivo...", "")

	summary, err := e.summarizer.Summarize(ctx, tender, results)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			e.log.Warnf("summarize_failed tender=%s error=%v", tender.TenderID, err)
			errs.add("summarize: %v", err)
		}
		summary = agent.FallbackSummary(results)
	}
	return summary
}
