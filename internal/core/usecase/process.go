package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

// ProcessDocumentUseCase orchestrates one pipeline run per document: it is
// the only component with side effects on persistent storage. Every stage
// upstream of persistence prefers degrading confidence over raising.
type ProcessDocumentUseCase struct {
	docs      ports.DocumentRepository
	store     ports.PipelineStore
	roster    ports.RosterRepository
	extractor ports.TextExtractor
	analyzer  ports.Analyzer
	cipher    ports.ContentCipher
	queue     ports.MessageQueue
	locks     *documentLocks
	now       func() time.Time
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	store ports.PipelineStore,
	roster ports.RosterRepository,
	extractor ports.TextExtractor,
	analyzer ports.Analyzer,
	cipher ports.ContentCipher,
	queue ports.MessageQueue,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		docs:      docs,
		store:     store,
		roster:    roster,
		extractor: extractor,
		analyzer:  analyzer,
		cipher:    cipher,
		queue:     queue,
		locks:     newDocumentLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the clock, for deterministic tests.
func (uc *ProcessDocumentUseCase) WithClock(now func() time.Time) *ProcessDocumentUseCase {
	uc.now = now
	return uc
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) (domain.ProcessingResult, error) {
	uc.locks.Lock(documentID)
	defer uc.locks.Unlock(documentID)

	// Lock acquisition re-checks existence: a document deleted while the run
	// was queued aborts here without writing anything.
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("load document: %w", err)
	}
	prevStatus := doc.Status

	if err := uc.markStatus(ctx, doc, domain.StatusExtracting); err != nil {
		return domain.ProcessingResult{}, err
	}

	extraction := uc.extract(ctx, doc)

	if err := uc.markStatus(ctx, doc, domain.StatusAnalyzing); err != nil {
		return domain.ProcessingResult{}, err
	}

	analysis, analysisDegraded := uc.analyze(ctx, doc, extraction.Text)

	if err := uc.markStatus(ctx, doc, domain.StatusMatching); err != nil {
		return domain.ProcessingResult{}, err
	}

	dates := ResolveDates(analysis.Result.ExtractedDateStrings, doc.UploadedAt, extraction.Text)
	match, err := uc.match(ctx, doc, analysis.Result, dates)
	if err != nil {
		return domain.ProcessingResult{}, err
	}

	scores := domain.ComputeValidationScores(
		extraction.Score,
		analysis.Score,
		dates.Score,
		MatchScore(match),
	)

	if err := uc.markStatus(ctx, doc, domain.StatusScored); err != nil {
		return domain.ProcessingResult{}, err
	}

	outcome := RouteOutcome(scores, match)
	needsReview := outcome == domain.StatusNeedsReview || analysisDegraded

	run, err := uc.buildRunOutcome(doc, extraction, analysis.Result, dates, match, scores, outcome, needsReview)
	if err != nil {
		uc.revert(ctx, doc.ID, prevStatus)
		return domain.ProcessingResult{}, err
	}

	if err := uc.store.SaveOutcome(ctx, run); err != nil {
		uc.revert(ctx, doc.ID, prevStatus)
		return domain.ProcessingResult{}, domain.WrapError(domain.ErrPersistence, "save run outcome", err)
	}

	uc.audit(ctx, doc.ID, outcome, scores.OverallQuality)

	return buildProcessingResult(doc.ID, outcome, needsReview, extraction.Text, analysis.Result, dates, match, scores), nil
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc *domain.Document) ports.Extraction {
	extraction, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		// Degrade, never abort: downstream stages still attempt best-effort
		// matching on filename and metadata alone.
		slog.Warn("extraction_degraded", "document_id", doc.ID, "error", err)
		return ports.Extraction{}
	}
	extraction.Score = domain.ClampScore(extraction.Score)
	return extraction
}

func (uc *ProcessDocumentUseCase) analyze(ctx context.Context, doc *domain.Document, text string) (ports.Analysis, bool) {
	analysis, err := uc.analyzer.Analyze(ctx, text, doc.Filename)
	if err != nil {
		slog.Warn("analysis_degraded", "document_id", doc.ID, "error", err)
		return ports.Analysis{Result: minimalAnalysis()}, true
	}
	analysis.Score = domain.ClampScore(analysis.Score)
	if analysis.Result.Themes == nil {
		analysis.Result.Themes = []string{}
	}
	if analysis.Result.ClientMentions == nil {
		analysis.Result.ClientMentions = []string{}
	}
	return analysis, false
}

func (uc *ProcessDocumentUseCase) match(ctx context.Context, doc *domain.Document, analysis domain.AnalysisResult, dates DateResolution) (domain.MatchResult, error) {
	roster, err := uc.roster.ActiveClients(ctx)
	if err != nil {
		return domain.MatchResult{}, domain.WrapError(domain.ErrPersistence, "load roster", err)
	}

	from, to := uc.appointmentWindow(doc.UploadedAt, dates)
	appointments, err := uc.roster.AppointmentsBetween(ctx, from, to)
	if err != nil {
		return domain.MatchResult{}, domain.WrapError(domain.ErrPersistence, "load appointments", err)
	}

	in := MatchInput{
		Mentions:     analysis.ClientMentions,
		PrimaryGuess: analysis.PrimaryClientNameGuess,
		ClientIDHint: doc.ClientIDHint,
		Roster:       roster,
		Appointments: appointments,
	}
	if dates.Best != nil {
		in.BestDate = &dates.Best.Date
	}
	return MatchClients(in), nil
}

// appointmentWindow bounds the calendar fetch: ±1 day around the resolved
// date when one exists, otherwise the full plausibility window.
func (uc *ProcessDocumentUseCase) appointmentWindow(uploadedAt time.Time, dates DateResolution) (time.Time, time.Time) {
	if dates.Best != nil {
		return dates.Best.Date.Add(-calendarSlack), dates.Best.Date.Add(2 * calendarSlack)
	}
	return uploadedAt.Add(-plausibleLookback), uploadedAt.Add(plausibleLead)
}

func (uc *ProcessDocumentUseCase) buildRunOutcome(
	doc *domain.Document,
	extraction ports.Extraction,
	analysis domain.AnalysisResult,
	dates DateResolution,
	match domain.MatchResult,
	scores domain.ValidationScores,
	outcome domain.DocumentStatus,
	needsReview bool,
) (ports.RunOutcome, error) {
	run := ports.RunOutcome{
		DocumentID:    doc.ID,
		Status:        outcome,
		ExtractedText: extraction.Text,
		Analysis:      analysis,
		Scores:        scores,
	}

	top := match.Top()
	if top == nil || outcome == domain.StatusRejected {
		return run, nil
	}

	// linkedClientId is set for auto_linked and for needs_review with a
	// suggested candidate; the note draft follows the same rule.
	run.LinkedClientID = top.ClientID
	run.LinkedSessionID = top.SessionID

	content := extraction.Text
	if content == "" {
		content = analysis.Summary
	}
	sealed, err := uc.cipher.Seal(content)
	if err != nil {
		return ports.RunOutcome{}, domain.WrapError(domain.ErrPersistence, "seal note content", err)
	}

	note := &domain.ProgressNote{
		ClientID:          top.ClientID,
		SessionID:         top.SessionID,
		Content:           sealed,
		NeedsManualReview: needsReview,
		SourceDocumentID:  doc.ID,
	}
	if top.SessionDate != nil {
		note.SessionDate = top.SessionDate
	} else if dates.Best != nil {
		note.SessionDate = &dates.Best.Date
	}
	run.Note = note
	return run, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, doc *domain.Document, status domain.DocumentStatus) error {
	if !CanTransition(doc.Status, status) {
		return domain.WrapError(domain.ErrInvalidTransition, "mark status",
			fmt.Errorf("%s -> %s", doc.Status, status))
	}
	if err := uc.docs.UpdateStatus(ctx, doc.ID, status, ""); err != nil {
		return domain.WrapError(domain.ErrPersistence, "update status", err)
	}
	doc.Status = status
	return nil
}

func (uc *ProcessDocumentUseCase) revert(ctx context.Context, documentID string, status domain.DocumentStatus) {
	if err := uc.docs.UpdateStatus(ctx, documentID, status, ""); err != nil {
		slog.Error("status_revert_failed", "document_id", documentID, "status", status, "error", err)
	}
}

func (uc *ProcessDocumentUseCase) audit(ctx context.Context, documentID string, outcome domain.DocumentStatus, overallQuality int) {
	event := domain.AuditEvent{
		DocumentID:     documentID,
		Outcome:        outcome,
		OverallQuality: overallQuality,
	}
	if err := uc.queue.PublishAudit(ctx, event); err != nil {
		slog.Warn("audit_publish_failed", "document_id", documentID, "error", err)
	}
}

func minimalAnalysis() domain.AnalysisResult {
	return domain.AnalysisResult{
		Themes:               []string{},
		ClientMentions:       []string{},
		DocumentType:         domain.DocTypeOther,
		ExtractedDateStrings: []string{},
		ClinicalIndicators:   []domain.ClinicalIndicator{},
	}
}

func buildProcessingResult(
	documentID string,
	outcome domain.DocumentStatus,
	needsReview bool,
	text string,
	analysis domain.AnalysisResult,
	dates DateResolution,
	match domain.MatchResult,
	scores domain.ValidationScores,
) domain.ProcessingResult {
	result := domain.ProcessingResult{
		DocumentID:        documentID,
		Success:           outcome != domain.StatusRejected && outcome != domain.StatusFailed,
		Status:            outcome,
		NeedsManualReview: needsReview,
		ExtractedData: domain.ExtractedData{
			Content:     text,
			SessionType: string(analysis.DocumentType),
			RiskLevel:   string(analysis.HighestSeverity()),
		},
		ValidationDetails: scores,
	}
	if top := match.Top(); top != nil {
		result.Confidence = top.Confidence
	}
	if analysis.PrimaryClientNameGuess != "" {
		result.ExtractedData.ClientName = analysis.PrimaryClientNameGuess
	}
	if dates.Best != nil {
		result.ExtractedData.SessionDate = dates.Best.Date.Format("2006-01-02")
	}
	return result
}
